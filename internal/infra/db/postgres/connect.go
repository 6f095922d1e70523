package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx2); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
  id              TEXT PRIMARY KEY,
  category        TEXT NOT NULL,
  diagnosis       TEXT NOT NULL,
  findings        JSONB NOT NULL,
  recommendations JSONB NOT NULL,
  confidence      DOUBLE PRECISION NOT NULL,
  disclaimer      TEXT NOT NULL,
  severity        TEXT NOT NULL DEFAULT '-',
  input           TEXT NOT NULL,
  file_url        TEXT NOT NULL DEFAULT '-',
  created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_created ON analysis_results (created_at DESC);`

// EnsureSchema creates the results table when missing.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create analysis_results: %w", err)
	}
	return nil
}
