package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/seqops/seqbrowse/internal/config"
	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/filestore"
	"github.com/seqops/seqbrowse/internal/logger"
	"github.com/seqops/seqbrowse/internal/report"
)

// Service is the complete interface handed to the UI layer: the
// Coordinator's browsing state plus the per-object operations (preview,
// extraction, signing, download).
type Service struct {
	*Coordinator

	store     filestore.Store
	extractor *report.Extractor
	rewriter  *report.Rewriter
	cfg       *config.Config
	log       *logger.Logger
}

// NewService wires the full browsing stack from cfg.
func NewService(store filestore.Store, cfg *config.Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		Coordinator: NewCoordinator(store, cfg, log),
		store:       store,
		extractor:   report.NewExtractor(store, cfg.WebRoot, cfg.MaxArchiveBytes, log),
		rewriter:    report.NewRewriter(store, cfg.PresignTTL),
		cfg:         cfg,
		log:         log.Component("service"),
	}
}

// ExtractReport downloads and unpacks the archive at key into the web root,
// returning where the report entry point landed.
func (s *Service) ExtractReport(ctx context.Context, key string) (*report.ExtractionResult, error) {
	res, err := s.extractor.Extract(ctx, s.cfg.Bucket, key)
	if err != nil {
		s.setStatus(storeStatus("error extracting report", err))
		return nil, err
	}
	s.setStatus(fmt.Sprintf("Extracted report to %s.", res.ReportPath))
	return res, nil
}

// Preview fetches a standalone report HTML object, rewrites its relative
// asset links to presigned URLs, writes the result under the web root, and
// returns the servable URL path.
func (s *Service) Preview(ctx context.Context, key string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(key), ".html") {
		return "", errs.New(errs.ErrKindInvalidInput, "preview only works for .html reports")
	}

	obj, err := s.store.GetObject(ctx, s.cfg.Bucket, key)
	if err != nil {
		s.setStatus(storeStatus("error opening report", err))
		return "", err
	}
	raw, err := io.ReadAll(obj)
	obj.Close()
	if err != nil {
		return "", errs.Wrap(errs.ErrKindStoreFailed, "failed to read report body", err)
	}

	rewritten, err := s.rewriter.Rewrite(ctx, s.cfg.Bucket, key, string(raw))
	if err != nil {
		s.setStatus(storeStatus("error rewriting report", err))
		return "", err
	}

	rel := report.PreviewPath(key)
	dest := filepath.Join(s.cfg.WebRoot, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", errs.Wrap(errs.ErrKindStoreFailed, "cannot create preview directory", err)
	}
	if err := os.WriteFile(dest, []byte(rewritten), 0o644); err != nil {
		return "", errs.Wrap(errs.ErrKindStoreFailed, "cannot write preview file", err)
	}

	s.setStatus("Report preview ready.")
	return "/" + rel, nil
}

// RewriteMarkup exposes the raw rewriter for callers that already hold the
// markup bytes.
func (s *Service) RewriteMarkup(ctx context.Context, key, markup string) (string, error) {
	return s.rewriter.Rewrite(ctx, s.cfg.Bucket, key, markup)
}

// Sign returns a presigned download URL for key using the configured TTL.
func (s *Service) Sign(ctx context.Context, key string) (string, error) {
	return s.store.PresignGetURL(ctx, s.cfg.Bucket, key, s.cfg.PresignTTL)
}

// Download writes the object at key into the local downloads directory,
// flattening the key's path separators to keep a single flat namespace.
// Returns the local path.
func (s *Service) Download(ctx context.Context, key string) (string, error) {
	local := filepath.Join(s.cfg.DownloadDir, strings.ReplaceAll(key, "/", "__"))
	if err := s.store.DownloadFile(ctx, s.cfg.Bucket, key, local); err != nil {
		s.setStatus(storeStatus("error downloading", err))
		return "", err
	}
	s.setStatus(fmt.Sprintf("Downloaded to %s.", local))
	return local, nil
}
