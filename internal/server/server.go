// Package server exposes the browsing service over HTTP for the front-end
// layer, plus static serving of the web root (previews and extracted
// report bundles).
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seqops/seqbrowse/internal/browser"
	"github.com/seqops/seqbrowse/internal/config"
	"github.com/seqops/seqbrowse/internal/errs"
	"github.com/seqops/seqbrowse/internal/logger"
	"github.com/seqops/seqbrowse/internal/render"
)

// Server routes HTTP requests to the browsing service.
type Server struct {
	svc      *browser.Service
	renderer render.Renderer
	cfg      *config.Config
	log      *logger.Logger
	router   chi.Router
}

// New builds the router. The renderer variant (grid or table) is fixed at
// construction.
func New(svc *browser.Service, renderer render.Renderer, cfg *config.Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		svc:      svc,
		renderer: renderer,
		cfg:      cfg,
		log:      log.Component("server"),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/projects/refresh", s.handleRefreshProjects)
		r.Get("/projects", s.handleProjects)
		r.Get("/subfolders", s.handleSubfolders)
		r.Get("/objects", s.handleObjects)
		r.Get("/samples", s.handleSamples)
		r.Get("/view/objects", s.handleViewObjects)
		r.Get("/view/samples", s.handleViewSamples)
		r.Post("/select", s.handleSelect)
		r.Post("/report/extract", s.handleExtract)
		r.Get("/preview", s.handlePreview)
		r.Get("/sign", s.handleSign)
		r.Post("/download", s.handleDownload)
	})

	// Previews and extracted bundles live under <web-root>/downloads.
	downloads := filepath.Join(s.cfg.WebRoot, "downloads")
	_ = os.MkdirAll(downloads, 0o755)
	r.Handle("/downloads/*", http.StripPrefix("/downloads/", http.FileServer(http.Dir(downloads))))

	return r
}

// --- handlers ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": s.svc.Status()}
	if err := s.svc.LastErr(); err != nil {
		resp["last_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefreshProjects(w http.ResponseWriter, r *http.Request) {
	started := s.svc.RefreshProjects(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"started":   started,
		"projects":  s.svc.Projects(),
		"preferred": s.svc.Preferred(),
		"status":    s.svc.Status(),
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"projects":  s.svc.Projects(),
		"preferred": s.svc.Preferred(),
	})
}

func (s *Server) handleSubfolders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"subfolders": browser.Subfolders})
}

func (s *Server) handleObjects(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	if project == "" {
		project = s.svc.Preferred()
	}
	if project == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "no project selected"))
		return
	}
	subfolder := r.URL.Query().Get("subfolder")

	started := s.svc.ListObjects(r.Context(), project, subfolder)

	cat := s.svc.Catalog()
	resp := map[string]any{
		"started": started,
		"status":  s.svc.Status(),
	}
	if cat != nil {
		resp["catalog"] = cat
		resp["maybe_truncated"] = cat.MaybeTruncated()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"samples": s.svc.Samples()})
}

func (s *Server) handleViewObjects(w http.ResponseWriter, r *http.Request) {
	cat := s.svc.Catalog()
	if cat == nil {
		s.writeError(w, errs.New(errs.ErrKindNotFound, "no listing loaded yet"))
		return
	}
	out, err := s.renderer.RenderObjects(cat.Records)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": out})
}

func (s *Server) handleViewSamples(w http.ResponseWriter, r *http.Request) {
	out, err := s.renderer.RenderSamples(s.svc.Samples())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": out})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Index *int   `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "bad select request", err))
		return
	}

	// both selection paths funnel into the same value; last write wins
	if req.Index != nil {
		if err := s.svc.SelectIndex(*req.Index); err != nil {
			s.writeError(w, err)
			return
		}
	} else if req.Key != "" {
		s.svc.Select(req.Key)
	}
	writeJSON(w, http.StatusOK, map[string]any{"selected": s.svc.Selected()})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyFromBody(w, r)
	if !ok {
		return
	}
	res, err := s.svc.ExtractReport(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		key = s.svc.Selected()
	}
	if key == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "no key given or selected"))
		return
	}
	url, err := s.svc.Preview(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "key is required"))
		return
	}
	url, err := s.svc.Sign(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	key, ok := s.keyFromBody(w, r)
	if !ok {
		return
	}
	local, err := s.svc.Download(r.Context(), key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"local_path": local})
}

// --- helpers ---

func (s *Server) keyFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "key is required"))
		return "", false
	}
	return req.Key, true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{
		"error": err.Error(),
		"code":  errs.CodeOf(err),
	})
}

// statusFor maps error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsPermissionDenied(err):
		return http.StatusForbidden
	case errs.IsInvalidInput(err):
		return http.StatusBadRequest
	case errs.IsTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errs.IsReportNotFound(err), errs.IsMalformedArchive(err):
		return http.StatusUnprocessableEntity
	case errs.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errs.IsConnectionFailed(err), errs.IsStoreFailed(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// requestLog logs each request with method, path, and duration.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("duration", time.Since(start).String()).
			Logger().Debug("request")
	})
}
