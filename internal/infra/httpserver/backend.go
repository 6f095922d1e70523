package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appbackend "github.com/bryanwahyu/medassist/internal/application/backend"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/middleware"
)

// BackendOptions wires the reference analysis backend.
type BackendOptions struct {
	Metrics   *middleware.Metrics
	Limiter   *middleware.RateLimiter
	Checks    map[string]middleware.HealthChecker
	MaxUpload int64
}

type backendRouter struct {
	svc       *appbackend.Service
	maxUpload int64
}

// NewBackendRouter serves the analysis API the web server consumes:
// POST /analyze/{category}, GET /history and GET /health.
func NewBackendRouter(svc *appbackend.Service, opts BackendOptions) http.Handler {
	r := &backendRouter{svc: svc, maxUpload: opts.MaxUpload}
	if r.maxUpload <= 0 {
		r.maxUpload = analysis.DefaultMaxBytes
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.MetricsMiddleware)
	}
	mux.Use(cors.AllowAll().Handler)
	if opts.Limiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.Limiter))
	}

	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}
	mux.Get("/health", middleware.HealthHandler(opts.Checks))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Post("/analyze/{category}", wrap(r.handleAnalyze))
	mux.Get("/history", wrap(r.handleHistory))
	mux.Delete("/history/{id}", wrap(r.handleDelete))
	return mux
}

// POST /analyze/{category}
// Media: multipart field "file". Text: {"text": "...", "severity": "..."}.
func (r *backendRouter) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	category, err := middleware.ValidateCategory(chi.URLParam(req, "category"))
	if err != nil {
		return err
	}
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+formOverhead)

	cmd := appbackend.AnalyzeCommand{Category: category}
	if category == analysis.CategoryText {
		var body struct {
			Text     string `json:"text"`
			Severity string `json:"severity"`
		}
		if err := decodeJSON(req, &body); err != nil {
			return err
		}
		if cmd.Severity, err = middleware.ValidateSeverity(body.Severity); err != nil {
			return err
		}
		cmd.Data = []byte(middleware.SanitizeString(body.Text))
	} else {
		file, hdr, err := req.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return &analysis.ValidationError{Reason: "exceeds size limit"}
			}
			return &analysis.ValidationError{Reason: `missing multipart field "file"`}
		}
		defer file.Close()
		if hdr.Size > r.maxUpload {
			return &analysis.ValidationError{Reason: "exceeds size limit"}
		}
		if cmd.Data, err = io.ReadAll(file); err != nil {
			return err
		}
		cmd.Name = hdr.Filename
		cmd.ContentType = hdr.Header.Get("Content-Type")
	}

	res, err := r.svc.Analyze(req.Context(), cmd)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /history?limit=20
func (r *backendRouter) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.svc.History(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// DELETE /history/{id}
func (r *backendRouter) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := middleware.ValidateResultID(chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if err := r.svc.Delete(req.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
