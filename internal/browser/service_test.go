package browser

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqops/seqbrowse/internal/config"
	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/filestore/storetest"
)

func newTestService(t *testing.T, store *storetest.Fake) (*Service, *config.Config) {
	t.Helper()
	cfg := testConfig()
	cfg.WebRoot = t.TempDir()
	cfg.DownloadDir = t.TempDir()
	return NewService(store, cfg, nil), cfg
}

func TestService_Download_FlattensKey(t *testing.T) {
	store := &storetest.Fake{Entries: []storetest.Entry{
		{Key: "vendor-data/proj1/QC/multiqc_report.html", Body: []byte("<html></html>")},
	}}
	svc, cfg := newTestService(t, store)

	local, err := svc.Download(context.Background(), "vendor-data/proj1/QC/multiqc_report.html")
	require.NoError(t, err)

	assert.Equal(t,
		filepath.Join(cfg.DownloadDir, "vendor-data__proj1__QC__multiqc_report.html"),
		local)
	assert.FileExists(t, local)
	assert.Contains(t, svc.Status(), "Downloaded to")
}

func TestService_Preview_RewritesAndWrites(t *testing.T) {
	html := `<html><body><img src="Images/duplication_levels.png"></body></html>`
	store := &storetest.Fake{Entries: []storetest.Entry{
		{Key: "vendor-data/proj1/FastQC/sample_fastqc.html", Body: []byte(html)},
	}}
	svc, cfg := newTestService(t, store)

	url, err := svc.Preview(context.Background(), "vendor-data/proj1/FastQC/sample_fastqc.html")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "/downloads/fastqc_"))
	assert.True(t, strings.HasSuffix(url, ".html"))

	written, err := os.ReadFile(filepath.Join(cfg.WebRoot, filepath.FromSlash(strings.TrimPrefix(url, "/"))))
	require.NoError(t, err)
	assert.Contains(t, string(written), "vendor-data/proj1/FastQC/Images/duplication_levels.png")
	assert.Contains(t, string(written), "X-Amz-Signature")
}

func TestService_Preview_RejectsNonHTML(t *testing.T) {
	svc, _ := newTestService(t, &storetest.Fake{})

	_, err := svc.Preview(context.Background(), "vendor-data/proj1/Salmon_Quant/S1/quant.sf")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestService_ExtractReport(t *testing.T) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("sample_fastqc/fastqc_report.html")
	require.NoError(t, err)
	_, err = w.Write([]byte("<html></html>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	store := &storetest.Fake{Entries: []storetest.Entry{
		{Key: "vendor-data/proj1/FastQC/sample_fastqc.zip", Body: buf.Bytes()},
	}}
	svc, cfg := newTestService(t, store)

	res, err := svc.ExtractReport(context.Background(), "vendor-data/proj1/FastQC/sample_fastqc.zip")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.LocalRoot, cfg.WebRoot))
	assert.FileExists(t, filepath.Join(cfg.WebRoot, filepath.FromSlash(res.ReportPath)))
	assert.Contains(t, svc.Status(), "Extracted report")
}

func TestService_ExtractReport_ErrorSurfacesInStatus(t *testing.T) {
	svc, _ := newTestService(t, &storetest.Fake{}) // no such archive

	_, err := svc.ExtractReport(context.Background(), "vendor-data/missing.zip")
	require.Error(t, err)
	assert.Contains(t, svc.Status(), "error extracting report")
}

func TestService_Sign(t *testing.T) {
	svc, _ := newTestService(t, &storetest.Fake{})

	url, err := svc.Sign(context.Background(), "vendor-data/proj1/file.txt")
	require.NoError(t, err)
	assert.Contains(t, url, "vendor-data/proj1/file.txt")
	assert.Contains(t, url, "X-Amz-Signature")
}

func TestService_RewriteMarkup(t *testing.T) {
	svc, _ := newTestService(t, &storetest.Fake{})

	out, err := svc.RewriteMarkup(context.Background(),
		"vendor-data/proj1/FastQC/sample_fastqc.html",
		`<html><body><a href="Icons/i.png">i</a></body></html>`)
	require.NoError(t, err)
	assert.Contains(t, out, "vendor-data/proj1/FastQC/Icons/i.png")
}
