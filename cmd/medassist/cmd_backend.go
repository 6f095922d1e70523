package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/medassist/internal/application"
	appbackend "github.com/bryanwahyu/medassist/internal/application/backend"
	"github.com/bryanwahyu/medassist/internal/config"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/ai/triage"
	"github.com/bryanwahyu/medassist/internal/infra/db/memory"
	"github.com/bryanwahyu/medassist/internal/infra/db/mysql"
	"github.com/bryanwahyu/medassist/internal/infra/db/postgres"
	"github.com/bryanwahyu/medassist/internal/infra/httpserver"
	"github.com/bryanwahyu/medassist/internal/infra/storage"
	"github.com/bryanwahyu/medassist/internal/middleware"
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Run the reference analysis backend (/analyze/{category}, /history)",
	Args:  cobra.NoArgs,
	RunE:  runBackend,
}

func runBackend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	checks := map[string]middleware.HealthChecker{}

	repo, db, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	metrics := middleware.NewMetrics()
	svc := &appbackend.Service{
		Analyzer: metrics.ArchivedAnalyzer(backendAnalyzer(cfg)),
		Repo:     repo,
		Clock:    application.SystemClock{},
		Cons:     analysis.DefaultConstraints(),
	}
	svc.Cons.MaxBytes = cfg.Upload.MaxBytes

	if cfg.MinioEnabled() {
		archive, err := storage.New(ctx, cfg.Minio.Endpoint, cfg.Minio.Region, cfg.Minio.BucketName,
			cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			return fmt.Errorf("minio init error: %w", err)
		}
		archive.PresignExpiry = cfg.Minio.PresignExpiry
		svc.Archive = archive
		svc.Key = func(a analysis.Artifact, id analysis.ResultID) string {
			return storage.ObjectKey(string(a.Category), string(id), a.Name, time.Now().UTC())
		}
		slog.Info("artifact archive enabled", "endpoint", cfg.Minio.Endpoint, "bucket", cfg.Minio.BucketName)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateBurst, cfg.Server.RatePerSecond)
	handler := httpserver.NewBackendRouter(svc, httpserver.BackendOptions{
		Metrics:   metrics,
		Limiter:   limiter,
		Checks:    checks,
		MaxUpload: cfg.Upload.MaxBytes,
	})
	return serveHTTP(ctx, fmt.Sprintf(":%d", cfg.Backend.Port), handler, cfg.Backend.Timeout+15*time.Second, limiter)
}

// backendAnalyzer uses the completion API when a key is configured and the
// offline triage rules otherwise.
func backendAnalyzer(c *config.Config) analysis.ArchivedAnalyzer {
	if c.OpenAI.APIKey == "" {
		slog.Warn("OPENAI_API_KEY not set, using offline triage rules")
		return triage.Analyzer{}
	}
	return newOpenAI(c)
}

func openRepository(ctx context.Context, c *config.Config) (analysis.Repository, *sql.DB, error) {
	switch c.Database.Driver {
	case "mysql":
		db, err := mysql.Connect(ctx, c.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect error: %w", err)
		}
		if err := mysql.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return mysql.NewResultRepository(db), db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, c.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect error: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewResultRepository(db), db, nil
	default:
		slog.Warn("no database configured, results are kept in memory")
		return memory.NewResultRepository(), nil, nil
	}
}
