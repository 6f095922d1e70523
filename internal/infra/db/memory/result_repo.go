// Package memory is the Repository used when no database is configured.
// Results live as long as the process.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

type ResultRepository struct {
	mu   sync.RWMutex
	rows []*analysis.Result
}

func NewResultRepository() *ResultRepository {
	return &ResultRepository{}
}

// Save inserts r at the head, or replaces the row with the same id.
func (r *ResultRepository) Save(_ context.Context, res *analysis.Result) error {
	cp := *res
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(res.ID); i >= 0 {
		r.rows[i] = &cp
		return nil
	}
	r.rows = slices.Insert(r.rows, 0, &cp)
	return nil
}

// Latest returns up to limit results, newest first.
func (r *ResultRepository) Latest(_ context.Context, limit int) ([]*analysis.Result, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := min(limit, len(r.rows))
	out := make([]*analysis.Result, n)
	for i := 0; i < n; i++ {
		cp := *r.rows[i]
		out[i] = &cp
	}
	return out, nil
}

func (r *ResultRepository) Delete(_ context.Context, id analysis.ResultID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return false, nil
	}
	r.rows = slices.Delete(r.rows, i, i+1)
	return true, nil
}

func (r *ResultRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

func (r *ResultRepository) index(id analysis.ResultID) int {
	return slices.IndexFunc(r.rows, func(x *analysis.Result) bool { return x.ID == id })
}
