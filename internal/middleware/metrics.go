package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// Metrics stores application metrics in its own registry.
type Metrics struct {
	reg *prometheus.Registry

	requests         *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
	requestDuration  *prometheus.HistogramVec

	analyses         *prometheus.CounterVec
	analysesInFlight prometheus.Gauge
	analysisDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist", Name: "http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medassist", Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medassist", Name: "http_request_duration_seconds",
			Help: "HTTP request latency.", Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist", Name: "analyses_total",
			Help: "Analysis calls by category and outcome.",
		}, []string{"category", "outcome"}),
		analysesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "medassist", Name: "analyses_in_flight",
			Help: "Analysis calls waiting on a dispatcher.",
		}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medassist", Name: "analysis_duration_seconds",
			Help:    "Analysis call latency.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"category"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.requestsInFlight, m.requestDuration,
		m.analyses, m.analysesInFlight, m.analysisDuration,
	)
	return m
}

// MetricsMiddleware tracks request metrics
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()
		start := time.Now()

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Outcome buckets an analysis error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, analysis.ErrValidation), errors.Is(err, analysis.ErrUnsupportedCategory):
		return "rejected"
	case errors.Is(err, analysis.ErrQuotaExceeded):
		return "quota"
	case errors.Is(err, analysis.ErrNetwork):
		return "network"
	case errors.Is(err, analysis.ErrMalformedResponse):
		return "malformed"
	}
	var serr *analysis.ServerError
	if errors.As(err, &serr) {
		return "server_error"
	}
	return "error"
}

func (m *Metrics) observe(cat analysis.Category, start time.Time, err error) {
	m.analyses.WithLabelValues(string(cat), Outcome(err)).Inc()
	m.analysisDuration.WithLabelValues(string(cat)).Observe(time.Since(start).Seconds())
}

// Analyzer counts calls through next.
func (m *Metrics) Analyzer(next analysis.Analyzer) analysis.Analyzer {
	return instrumented{m: m, next: next}
}

type instrumented struct {
	m    *Metrics
	next analysis.Analyzer
}

func (i instrumented) Analyze(ctx context.Context, a analysis.Artifact) (analysis.Result, error) {
	i.m.analysesInFlight.Inc()
	defer i.m.analysesInFlight.Dec()
	start := time.Now()
	res, err := i.next.Analyze(ctx, a)
	i.m.observe(a.Category, start, err)
	return res, err
}

// ArchivedAnalyzer counts calls through next.
func (m *Metrics) ArchivedAnalyzer(next analysis.ArchivedAnalyzer) analysis.ArchivedAnalyzer {
	return instrumentedArchived{m: m, next: next}
}

type instrumentedArchived struct {
	m    *Metrics
	next analysis.ArchivedAnalyzer
}

func (i instrumentedArchived) AnalyzeArchived(ctx context.Context, a analysis.Artifact, fileURL string) (analysis.Result, error) {
	i.m.analysesInFlight.Inc()
	defer i.m.analysesInFlight.Dec()
	start := time.Now()
	res, err := i.next.AnalyzeArchived(ctx, a, fileURL)
	i.m.observe(a.Category, start, err)
	return res, err
}
