// Package report materializes FastQC report bundles from the remote store:
// zip archives are extracted into the web-servable root, and standalone
// report HTML gets its relative asset links rewritten to presigned URLs.
package report

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/filestore"
	"github.com/seqops/seqbrowse/internal/logger"
)

// canonicalReport is the entry point FastQC writes inside every bundle.
const canonicalReport = "fastqc_report.html"

// downloadsSubdir is where extractions and previews land under the web root.
const downloadsSubdir = "downloads"

// ExtractionResult describes one archive's extraction outcome.
type ExtractionResult struct {
	// SourceKey is the archive's remote key.
	SourceKey string `json:"source_key"`

	// LocalRoot is the extraction directory, derived from a stable hash of
	// SourceKey so the same archive always lands in the same place.
	LocalRoot string `json:"local_root"`

	// ReportPath is the discovered report entry point, relative to the web
	// root, so callers can build a servable URL without path arithmetic.
	ReportPath string `json:"report_path"`
}

// Extractor downloads and unpacks report archives.
type Extractor struct {
	store    filestore.Store
	webRoot  string
	maxBytes int64
	log      *logger.Logger
}

// NewExtractor returns an Extractor writing under webRoot. Archives larger
// than maxBytes are refused outright.
func NewExtractor(store filestore.Store, webRoot string, maxBytes int64, log *logger.Logger) *Extractor {
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{
		store:    store,
		webRoot:  webRoot,
		maxBytes: maxBytes,
		log:      log.Component("extract"),
	}
}

// Extract downloads the archive at key, unpacks it under the deterministic
// local root, and locates the report entry point.
//
// Entries whose normalized path is absolute or escapes the root are skipped
// with a warning; a single poisoned entry must not abort an otherwise valid
// report. Re-extracting the same key is idempotent: the destination paths
// are deterministic and per-file writes simply overwrite.
func (e *Extractor) Extract(ctx context.Context, bucket, key string) (*ExtractionResult, error) {
	data, err := e.download(ctx, bucket, key)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindMalformedArchive, "not a valid zip archive", err)
	}

	localRoot := filepath.Join(e.webRoot, downloadsSubdir, "fastqc_zip_"+Digest(key))
	if err := os.MkdirAll(localRoot, 0o755); err != nil {
		return nil, errs.Wrap(errs.ErrKindStoreFailed, "cannot create extraction root", err)
	}

	for _, entry := range zr.File {
		if err := e.extractEntry(entry, localRoot); err != nil {
			return nil, err
		}
	}

	reportRel, err := e.findReport(localRoot)
	if err != nil {
		return nil, err
	}

	e.log.With().Str("key", key).Str("root", localRoot).Logger().Info("archive extracted")

	return &ExtractionResult{
		SourceKey:  key,
		LocalRoot:  localRoot,
		ReportPath: reportRel,
	}, nil
}

// download reads the whole archive into memory, refusing anything over the
// configured ceiling before buffering unboundedly.
func (e *Extractor) download(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := e.store.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	if size := obj.Info().Size; size > e.maxBytes {
		return nil, errs.New(errs.ErrKindTooLarge,
			fmt.Sprintf("archive is %d bytes, ceiling is %d", size, e.maxBytes))
	}

	data, err := io.ReadAll(io.LimitReader(obj, e.maxBytes+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindStoreFailed, "failed to read archive body", err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, errs.New(errs.ErrKindTooLarge,
			fmt.Sprintf("archive exceeds the %d byte ceiling", e.maxBytes))
	}
	return data, nil
}

// extractEntry writes one archive entry under localRoot, or skips it when
// its path cannot be proven to stay inside.
func (e *Extractor) extractEntry(entry *zip.File, localRoot string) error {
	name, ok := safeEntryPath(entry.Name)
	if !ok {
		e.log.Warnf("skipping archive entry with unsafe path: %q", entry.Name)
		return nil
	}

	dest := filepath.Join(localRoot, filepath.FromSlash(name))

	// Second line of defense: the resolved destination must still sit
	// inside the root even after Join cleaning.
	if rel, err := filepath.Rel(localRoot, dest); err != nil ||
		rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		e.log.Warnf("skipping archive entry escaping the root: %q", entry.Name)
		return nil
	}

	if entry.FileInfo().IsDir() {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return errs.Wrap(errs.ErrKindStoreFailed, "cannot create archive directory", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errs.Wrap(errs.ErrKindStoreFailed, "cannot create entry parent directory", err)
	}

	src, err := entry.Open()
	if err != nil {
		return errs.Wrap(errs.ErrKindMalformedArchive, "cannot open archive entry", err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return errs.Wrap(errs.ErrKindStoreFailed, "cannot create extracted file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return errs.Wrap(errs.ErrKindStoreFailed, "cannot write extracted file", err)
	}
	return nil
}

// findReport walks the extraction root for the canonical report filename,
// falling back to the first HTML file found.
func (e *Extractor) findReport(localRoot string) (string, error) {
	var canonical, anyHTML string

	err := filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		base := strings.ToLower(filepath.Base(p))
		if base == canonicalReport && canonical == "" {
			canonical = p
		}
		if strings.HasSuffix(base, ".html") && anyHTML == "" {
			anyHTML = p
		}
		return nil
	})
	if err != nil {
		return "", errs.Wrap(errs.ErrKindStoreFailed, "cannot scan extraction root", err)
	}

	found := canonical
	if found == "" {
		found = anyHTML
	}
	if found == "" {
		return "", errs.New(errs.ErrKindReportNotFound, "archive contains no HTML report")
	}

	rel, err := filepath.Rel(e.webRoot, found)
	if err != nil {
		return "", errs.Wrap(errs.ErrKindStoreFailed, "cannot relativize report path", err)
	}
	return filepath.ToSlash(rel), nil
}

// safeEntryPath normalizes an archive entry name and reports whether it is
// safe to resolve under the extraction root. Absolute paths and any path
// containing a parent-directory segment are rejected (zip-slip defense).
func safeEntryPath(raw string) (string, bool) {
	name := strings.ReplaceAll(raw, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	// Windows drive-letter entries ("C:/…") are absolute too.
	if len(name) >= 2 && name[1] == ':' {
		return "", false
	}
	for _, seg := range strings.Split(path.Clean(name), "/") {
		if seg == ".." {
			return "", false
		}
	}
	return path.Clean(name), true
}

// Digest returns the fixed-width hex digest used to derive local paths from
// a remote key: the first 12 hex characters of SHA-256(key).
func Digest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}

// PreviewPath returns the web-root-relative path where a rewritten
// single-file report preview for key is stored.
func PreviewPath(key string) string {
	return path.Join(downloadsSubdir, "fastqc_"+Digest(key)+".html")
}
