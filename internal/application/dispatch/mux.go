package dispatch

import (
	"context"
	"fmt"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// Mux routes an artifact to the analyzer registered for its category,
// falling back to Default.
type Mux struct {
	Routes  map[analysis.Category]analysis.Analyzer
	Default analysis.Analyzer
}

// Analyze rejects unknown categories before touching any analyzer.
func (m *Mux) Analyze(ctx context.Context, a analysis.Artifact) (analysis.Result, error) {
	if !a.Category.Valid() {
		return analysis.Result{}, fmt.Errorf("%w: %q", analysis.ErrUnsupportedCategory, a.Category)
	}
	if an, ok := m.Routes[a.Category]; ok && an != nil {
		return an.Analyze(ctx, a)
	}
	if m.Default == nil {
		return analysis.Result{}, fmt.Errorf("%w: no analyzer for %q", analysis.ErrUnsupportedCategory, a.Category)
	}
	return m.Default.Analyze(ctx, a)
}
