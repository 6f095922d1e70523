package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/medassist/internal/application/history"
	"github.com/bryanwahyu/medassist/internal/application/session"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/httpserver"
	"github.com/bryanwahyu/medassist/internal/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server (session API, history, web app)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	metrics := middleware.NewMetrics()
	an, src := buildAnalyzer(cfg)

	cons := analysis.DefaultConstraints()
	cons.MaxBytes = cfg.Upload.MaxBytes

	store := history.NewStore()
	ctl := session.NewController(metrics.Analyzer(an), store, cons)
	ctl.Timeout = cfg.Backend.Timeout

	if src != nil {
		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := store.Reload(rctx, src); err != nil {
			slog.Warn("initial history load failed", "error", err)
		}
		cancel()
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateBurst, cfg.Server.RatePerSecond)
	handler := httpserver.NewRouter(httpserver.Options{
		Session:   ctl,
		History:   store,
		Source:    src,
		Metrics:   metrics,
		Limiter:   limiter,
		StaticDir: cfg.Server.StaticDir,
		MaxUpload: cfg.Upload.MaxBytes,
	})

	slog.Info("web server starting", "mode", cfg.Analyzer.Mode, "backend", cfg.Backend.URL, "history", store.Len())
	// a submit blocks until the analyzer answers
	return serveHTTP(ctx, fmt.Sprintf(":%d", cfg.Server.Port), handler, cfg.Backend.Timeout+15*time.Second, limiter)
}
