// Package analyzers implements the five dimension analyzers. Each analyzer
// gathers case-scoped data from the knowledge graph and the case store,
// normalizes it into an opaque payload, and scores its completeness with a
// fixed weighted formula. Analyzers are independently re-runnable and share
// no state; the builder fans them out concurrently.
package analyzers

import (
	"context"

	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
)

// Result-size bounds for upstream calls.
const (
	entityListLimit  = 50
	queryResultLimit = 10
)

// Analyzer produces one dimension of a context record.
type Analyzer interface {
	// Dimension names the dimension this analyzer builds.
	Dimension() domain.DimensionName

	// Analyze gathers and scores the dimension for one case. The deadline
	// arrives through ctx; every upstream call must carry the case key.
	// An error means the dimension failed entirely; partial upstream
	// trouble degrades the completeness score instead.
	Analyze(ctx context.Context, key domain.CaseKey) (*domain.DimensionResult, error)
}

// Registry maps dimension names to their analyzers.
type Registry map[domain.DimensionName]Analyzer

// NewRegistry wires all five analyzers against the given upstreams.
func NewRegistry(graph ports.GraphQuerier, store ports.CaseStore, logger *zap.Logger) Registry {
	return Registry{
		domain.DimensionWho:   NewWhoAnalyzer(graph, store, logger),
		domain.DimensionWhat:  NewWhatAnalyzer(graph, store, logger),
		domain.DimensionWhere: NewWhereAnalyzer(store, logger),
		domain.DimensionWhen:  NewWhenAnalyzer(store, logger),
		domain.DimensionWhy:   NewWhyAnalyzer(graph, store, logger),
	}
}

// scaled maps a count onto [0,1] against a target: min(count, target)/target.
func scaled(count, target int) float64 {
	if count >= target {
		return 1
	}
	if count <= 0 {
		return 0
	}
	return float64(count) / float64(target)
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// newResult assembles a dimension result and derives sufficiency.
func newResult(data map[string]any, completeness, confidence float64, dataPoints int) *domain.DimensionResult {
	completeness = clamp01(completeness)
	return &domain.DimensionResult{
		Data:         data,
		Completeness: completeness,
		Confidence:   clamp01(confidence),
		DataPoints:   dataPoints,
		Sufficient:   completeness >= domain.CompletenessThreshold,
	}
}
