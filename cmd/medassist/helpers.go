package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/medassist/internal/application/dispatch"
	"github.com/bryanwahyu/medassist/internal/config"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/ai/openai"
	"github.com/bryanwahyu/medassist/internal/infra/backend"
	"github.com/bryanwahyu/medassist/internal/middleware"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Minute

	// maxHistory is the largest page the backend serves.
	maxHistory = 100
)

// serveHTTP runs handler on addr until ctx is cancelled, then drains open
// requests. The rate limiter sweeper shares the server's lifetime.
func serveHTTP(ctx context.Context, addr string, handler http.Handler, writeTimeout time.Duration, limiter *middleware.RateLimiter) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if limiter != nil {
		g.Go(func() error { return limiter.Run(gctx, sweepInterval) })
	}
	return g.Wait()
}

func newOpenAI(c *config.Config) *openai.Client {
	oc := openai.NewClientWithBaseURL(c.OpenAI.APIKey, c.OpenAI.Model, c.OpenAI.BaseURL)
	oc.JSONMode = c.OpenAI.JSONMode
	return oc
}

// buildAnalyzer picks the analyzer for the configured mode. The history
// source is nil when nothing keeps past results.
func buildAnalyzer(c *config.Config) (analysis.Analyzer, analysis.HistorySource) {
	client := backend.NewClient(c.Backend.URL, c.Backend.Timeout)
	client.HistoryLimit = maxHistory
	switch c.Analyzer.Mode {
	case config.ModeOpenAI:
		return &dispatch.Mux{Default: newOpenAI(c)}, nil
	case config.ModeHybrid:
		return &dispatch.Mux{
			Routes:  map[analysis.Category]analysis.Analyzer{analysis.CategoryText: newOpenAI(c)},
			Default: client,
		}, client
	default:
		return client, client
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	return t
}
