package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqops/seqbrowse/internal/browser"
	"github.com/seqops/seqbrowse/internal/config"
	"github.com/seqops/seqbrowse/internal/filestore/storetest"
	"github.com/seqops/seqbrowse/internal/render"
)

func newTestServer(t *testing.T) (*Server, *storetest.Fake) {
	t.Helper()
	store := &storetest.Fake{Entries: []storetest.Entry{
		{Key: "vendor-data/proj1/Salmon_Quant/S1/quant.sf",
			Body: []byte("x"), LastModified: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Key: "vendor-data/proj1/Salmon_Quant/S1.done",
			LastModified: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)},
		{Key: "vendor-data/proj1/FastQC/sample_fastqc.html",
			Body: []byte(`<html><body><img src="Images/x.png"></body></html>`),
			LastModified: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)},
	}}
	cfg := config.Default()
	cfg.Bucket = "bkt"
	cfg.WebRoot = t.TempDir()
	cfg.DownloadDir = t.TempDir()

	svc := browser.NewService(store, cfg, nil)
	return New(svc, render.NewTable(), cfg, nil), store
}

func doJSON(t *testing.T, srv *Server, method, target string, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestRefreshProjectsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, payload := doJSON(t, srv, http.MethodPost, "/api/projects/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, payload["started"])
	assert.Equal(t, []any{"proj1"}, payload["projects"])
	assert.Equal(t, "proj1", payload["preferred"])
}

func TestObjectsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, payload := doJSON(t, srv, http.MethodGet,
		"/api/objects?project=proj1&subfolder=Salmon_Quant/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cat, ok := payload["catalog"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "vendor-data/proj1/Salmon_Quant/", cat["prefix"])
	assert.Len(t, cat["records"], 2)
	assert.Equal(t, false, payload["maybe_truncated"])
}

func TestObjectsEndpoint_NoProject(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/objects", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSamplesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, http.MethodGet, "/api/objects?project=proj1&subfolder=Salmon_Quant/", "")

	rec, payload := doJSON(t, srv, http.MethodGet, "/api/samples", "")
	require.Equal(t, http.StatusOK, rec.Code)

	view, ok := payload["samples"].([]any)
	require.True(t, ok)
	require.Len(t, view, 1)
	sample := view[0].(map[string]any)
	assert.Equal(t, "S1", sample["sample_id"])
	assert.Equal(t, true, sample["complete"])
}

func TestViewEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	// no listing yet
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/view/objects", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doJSON(t, srv, http.MethodGet, "/api/objects?project=proj1&subfolder=Salmon_Quant/", "")

	rec, payload := doJSON(t, srv, http.MethodGet, "/api/view/objects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, payload["view"], "<table>")

	rec, payload = doJSON(t, srv, http.MethodGet, "/api/view/samples", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, payload["view"], "<td>S1</td>")
}

func TestSelectEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	doJSON(t, srv, http.MethodGet, "/api/objects?project=proj1&subfolder=Salmon_Quant/", "")

	rec, payload := doJSON(t, srv, http.MethodPost, "/api/select", `{"index": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "vendor-data/proj1/Salmon_Quant/S1.done", payload["selected"])

	rec, payload = doJSON(t, srv, http.MethodPost, "/api/select", `{"key": "some/other.txt"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "some/other.txt", payload["selected"])

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/select", `{"index": 42}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, payload := doJSON(t, srv, http.MethodGet,
		"/api/preview?key=vendor-data/proj1/FastQC/sample_fastqc.html", "")
	require.Equal(t, http.StatusOK, rec.Code)

	url, ok := payload["url"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(url, "/downloads/fastqc_"))

	// the preview file is servable through the static route
	req := httptest.NewRequest(http.MethodGet, url, nil)
	fileRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(fileRec, req)
	assert.Equal(t, http.StatusOK, fileRec.Code)
	assert.Contains(t, fileRec.Body.String(), "X-Amz-Signature")
}

func TestSignEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, payload := doJSON(t, srv, http.MethodGet, "/api/sign?key=vendor-data/proj1/file.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, payload["url"], "vendor-data/proj1/file.txt")

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/sign", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, payload := doJSON(t, srv, http.MethodPost, "/api/download",
		`{"key": "vendor-data/proj1/Salmon_Quant/S1/quant.sf"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, payload["local_path"], "vendor-data__proj1__Salmon_Quant__S1__quant.sf")
}

func TestErrorMapping_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, payload := doJSON(t, srv, http.MethodPost, "/api/download", `{"key": "no/such/key"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NoSuchKey", payload["code"])
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, payload := doJSON(t, srv, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ready.", payload["status"])
}
