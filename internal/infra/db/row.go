// Package db holds row helpers shared by the SQL result repositories.
package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// DashToEmpty undoes StringOrDash.
func DashToEmpty(s string) string {
	if s == "-" {
		return ""
	}
	return s
}

// EncodeList keeps JSON columns valid: nil becomes [].
func EncodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeList reads a JSON array column; empty means no items.
func DecodeList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// ResultColumns is the column order ScanResult expects.
const ResultColumns = `id, category, diagnosis, findings, recommendations, confidence,
  disclaimer, severity, input, file_url, created_at`

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanResult reads one row in ResultColumns order.
func ScanResult(s Scanner) (*analysis.Result, error) {
	var (
		r                 analysis.Result
		id, category, sev string
		findings, recs    []byte
		fileURL           string
		created           time.Time
	)
	if err := s.Scan(&id, &category, &r.Diagnosis, &findings, &recs, &r.Confidence,
		&r.Disclaimer, &sev, &r.Input, &fileURL, &created); err != nil {
		return nil, err
	}
	var err error
	if r.Findings, err = DecodeList(findings); err != nil {
		return nil, fmt.Errorf("result %s findings: %w", id, err)
	}
	if r.Recommendations, err = DecodeList(recs); err != nil {
		return nil, fmt.Errorf("result %s recommendations: %w", id, err)
	}
	r.ID = analysis.ResultID(id)
	r.Category = analysis.Category(category)
	r.Severity = analysis.Severity(DashToEmpty(sev))
	r.FileURL = DashToEmpty(fileURL)
	r.Timestamp = created.UTC()
	return &r, nil
}
