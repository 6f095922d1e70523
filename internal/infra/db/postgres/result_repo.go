package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/db"
)

type ResultRepository struct{ conn *sql.DB }

func NewResultRepository(conn *sql.DB) *ResultRepository { return &ResultRepository{conn: conn} }

// Save inserts or updates a result record
func (r *ResultRepository) Save(ctx context.Context, res *analysis.Result) error {
	const q = `
INSERT INTO analysis_results (` + db.ResultColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  category=EXCLUDED.category,
  diagnosis=EXCLUDED.diagnosis,
  findings=EXCLUDED.findings,
  recommendations=EXCLUDED.recommendations,
  confidence=EXCLUDED.confidence,
  disclaimer=EXCLUDED.disclaimer,
  severity=EXCLUDED.severity,
  input=EXCLUDED.input,
  file_url=EXCLUDED.file_url;`

	findings, err := db.EncodeList(res.Findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}
	recs, err := db.EncodeList(res.Recommendations)
	if err != nil {
		return fmt.Errorf("encode recommendations: %w", err)
	}
	createdAt := res.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.conn.ExecContext(ctx, q,
		string(res.ID), string(res.Category), res.Diagnosis, findings, recs, res.Confidence,
		res.Disclaimer, db.StringOrDash(string(res.Severity)), res.Input, db.StringOrDash(res.FileURL),
		createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", res.ID, err)
	}
	return nil
}

// Latest results, newest first
func (r *ResultRepository) Latest(ctx context.Context, limit int) ([]*analysis.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT ` + db.ResultColumns + `
FROM analysis_results
ORDER BY created_at DESC, id DESC
LIMIT $1;`
	rows, err := r.conn.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	out := []*analysis.Result{}
	for rows.Next() {
		res, err := db.ScanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ResultRepository) Delete(ctx context.Context, id analysis.ResultID) (bool, error) {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM analysis_results WHERE id=$1`, string(id))
	if err != nil {
		return false, fmt.Errorf("delete result %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
