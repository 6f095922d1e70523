package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
  id              VARCHAR(64)  NOT NULL PRIMARY KEY,
  category        VARCHAR(16)  NOT NULL,
  diagnosis       TEXT         NOT NULL,
  findings        JSON         NOT NULL,
  recommendations JSON         NOT NULL,
  confidence      DOUBLE       NOT NULL,
  disclaimer      TEXT         NOT NULL,
  severity        VARCHAR(16)  NOT NULL DEFAULT '-',
  input           TEXT         NOT NULL,
  file_url        VARCHAR(1024) NOT NULL DEFAULT '-',
  created_at      DATETIME(6)  NOT NULL,
  KEY idx_analysis_results_created (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`

// EnsureSchema creates the results table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create analysis_results: %w", err)
	}
	return nil
}
