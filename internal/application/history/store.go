package history

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// Store holds the analyses shown to the user, newest first. Insertion order
// defines display order; timestamps are never compared.
// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []analysis.Result
}

func NewStore() *Store {
	return &Store{}
}

// Append inserts r at the head. An entry with the same id is replaced, so
// ids stay unique.
func (s *Store) Append(r analysis.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.DeleteFunc(s.items, func(x analysis.Result) bool { return x.ID == r.ID })
	s.items = slices.Insert(s.items, 0, r)
}

// Remove deletes the entry with the given id and reports whether it existed.
// Removing a missing id is not an error.
func (s *Store) Remove(id analysis.ResultID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.items, func(r analysis.Result) bool { return r.ID == id })
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// List returns a snapshot; callers may modify it freely.
func (s *Store) List() []analysis.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Replace swaps the whole log, used when loading history from the backend.
func (s *Store) Replace(results []analysis.Result) {
	cp := slices.Clone(results)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = cp
}

func (s *Store) Get(id analysis.ResultID) (analysis.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.items {
		if r.ID == id {
			return r, true
		}
	}
	return analysis.Result{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Category analysis.Category
	Severity analysis.Severity
	// Query is matched case-insensitively against findings,
	// recommendations, diagnosis and input.
	Query string
}

func (f Filter) match(r analysis.Result) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	fields := append(append([]string{r.Diagnosis, r.Input}, r.Findings...), r.Recommendations...)
	for _, v := range fields {
		if strings.Contains(strings.ToLower(v), q) {
			return true
		}
	}
	return false
}

// Filter returns the matching entries, newest first.
func (s *Store) Filter(f Filter) []analysis.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]analysis.Result, 0, len(s.items))
	for _, r := range s.items {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Reload replaces the log with what the backend reports. On error the
// current log is left untouched.
func (s *Store) Reload(ctx context.Context, src analysis.HistorySource) error {
	results, err := src.History(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.Replace(dedupe(results))
	return nil
}

// dedupe keeps the first occurrence of every id and gives id-less entries a
// fresh one, so ids stay unique.
func dedupe(results []analysis.Result) []analysis.Result {
	seen := make(map[analysis.ResultID]struct{}, len(results))
	out := make([]analysis.Result, 0, len(results))
	for _, r := range results {
		if r.ID == "" {
			r.ID = analysis.ResultID(uuid.NewString())
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}
