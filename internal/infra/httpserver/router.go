package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/medassist/internal/application/history"
	"github.com/bryanwahyu/medassist/internal/application/session"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/middleware"
)

// formOverhead is allowed on top of the upload limit for multipart framing.
const formOverhead = 1 << 20

// Options wires the web server.
type Options struct {
	Session *session.Controller
	History *history.Store
	// Source backs POST /api/history/reload; nil disables it.
	Source analysis.HistorySource

	Metrics   *middleware.Metrics
	Limiter   *middleware.RateLimiter
	Checks    map[string]middleware.HealthChecker
	StaticDir string
	MaxUpload int64
}

type Router struct {
	session   *session.Controller
	history   *history.Store
	source    analysis.HistorySource
	maxUpload int64
}

// NewRouter builds the web front server: session and history API, health,
// metrics and the web app.
func NewRouter(opts Options) http.Handler {
	r := &Router{
		session:   opts.Session,
		history:   opts.History,
		source:    opts.Source,
		maxUpload: opts.MaxUpload,
	}
	if r.maxUpload <= 0 {
		r.maxUpload = analysis.DefaultMaxBytes
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.MetricsMiddleware)
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	mux.Get("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, alivePage)
	})
	mux.Get("/api/health", middleware.HealthHandler(opts.Checks))
	mux.Get("/livez", middleware.LivenessHandler)

	mux.Route("/api/session", func(rt chi.Router) {
		rt.Get("/", wrap(r.handleSnapshot))
		rt.Delete("/", wrap(r.handleClear))
		rt.Post("/artifact", wrap(r.handleSelectArtifact))
		rt.Post("/symptoms", wrap(r.handleSelectSymptoms))
		rt.Post("/submit", wrap(r.handleSubmit))
		rt.Post("/retry", wrap(r.handleRetry))
	})
	mux.Route("/api/history", func(rt chi.Router) {
		rt.Get("/", wrap(r.handleHistory))
		rt.Post("/reload", wrap(r.handleReload))
		rt.Delete("/{id}", wrap(r.handleDeleteHistory))
	})

	mux.NotFound(spaHandler{dir: opts.StaticDir}.ServeHTTP)
	return mux
}

// GET /api/session
func (r *Router) handleSnapshot(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, r.session.Snapshot())
}

// DELETE /api/session
func (r *Router) handleClear(w http.ResponseWriter, req *http.Request) error {
	r.session.Clear()
	return writeJSON(w, http.StatusOK, r.session.Snapshot())
}

// POST /api/session/artifact?category=image (multipart field "file")
func (r *Router) handleSelectArtifact(w http.ResponseWriter, req *http.Request) error {
	category, err := middleware.ValidateCategory(req.URL.Query().Get("category"))
	if err != nil {
		return err
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+formOverhead)
	file, hdr, err := req.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &analysis.ValidationError{Reason: "exceeds size limit"}
		}
		return &analysis.ValidationError{Reason: `missing multipart field "file"`}
	}
	defer file.Close()

	cand := analysis.Candidate{
		Name:        hdr.Filename,
		Category:    category,
		ContentType: hdr.Header.Get("Content-Type"),
		Size:        hdr.Size,
	}
	if hdr.Size <= r.maxUpload {
		if cand.Data, err = io.ReadAll(file); err != nil {
			return err
		}
	}
	if err := r.session.Select(cand); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, r.session.Snapshot())
}

// POST /api/session/symptoms {"text": "...", "severity": "mild"}
func (r *Router) handleSelectSymptoms(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text     string `json:"text"`
		Severity string `json:"severity"`
	}
	req.Body = http.MaxBytesReader(w, req.Body, formOverhead)
	if err := decodeJSON(req, &body); err != nil {
		return err
	}
	sev, err := middleware.ValidateSeverity(body.Severity)
	if err != nil {
		return err
	}
	if err := r.session.SelectText(middleware.SanitizeString(body.Text), sev); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, r.session.Snapshot())
}

// POST /api/session/submit
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	// the session outlives this request; a reload must not abort the analysis
	snap, err := r.session.Submit(context.WithoutCancel(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// POST /api/session/retry
func (r *Router) handleRetry(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.session.Retry(context.WithoutCancel(req.Context()))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// GET /api/history?category=&severity=&q=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	cat, err := middleware.ValidateOptionalCategory(q.Get("category"))
	if err != nil {
		return err
	}
	sev, err := middleware.ValidateSeverity(q.Get("severity"))
	if err != nil {
		return err
	}
	list := r.history.Filter(history.Filter{
		Category: cat,
		Severity: sev,
		Query:    middleware.SanitizeString(q.Get("q")),
	})
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/history/reload
func (r *Router) handleReload(w http.ResponseWriter, req *http.Request) error {
	if r.source == nil {
		return writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "history source not configured"})
	}
	if err := r.history.Reload(req.Context(), r.source); err != nil {
		return err
	}
	slog.InfoContext(req.Context(), "history reloaded", "entries", r.history.Len())
	return writeJSON(w, http.StatusOK, r.history.List())
}

// DELETE /api/history/{id}
func (r *Router) handleDeleteHistory(w http.ResponseWriter, req *http.Request) error {
	id, err := middleware.ValidateResultID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if !r.history.Remove(id) {
		return analysis.ErrNotFound
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
