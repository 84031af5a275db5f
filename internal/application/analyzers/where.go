package analyzers

import (
	"context"

	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
)

// WhereAnalyzer assembles the forum of a case: jurisdiction, court, and
// venue, plus the assigned judge. All of it comes from case metadata, so the
// case store is the sole source and a store failure fails the dimension.
type WhereAnalyzer struct {
	store  ports.CaseStore
	logger *zap.Logger
}

// NewWhereAnalyzer creates the WHERE analyzer.
func NewWhereAnalyzer(store ports.CaseStore, logger *zap.Logger) *WhereAnalyzer {
	return &WhereAnalyzer{store: store, logger: logger.Named("where")}
}

// Dimension implements Analyzer.
func (a *WhereAnalyzer) Dimension() domain.DimensionName { return domain.DimensionWhere }

// Analyze implements Analyzer.
func (a *WhereAnalyzer) Analyze(ctx context.Context, key domain.CaseKey) (*domain.DimensionResult, error) {
	meta, err := a.store.GetCaseMetadata(ctx, key)
	if err != nil {
		return nil, err
	}

	populated := 0
	dataPoints := 0
	for _, field := range []string{meta.Jurisdiction, meta.Court, meta.Venue} {
		if field != "" {
			populated++
			dataPoints++
		}
	}
	if meta.Judge != "" {
		dataPoints++
	}

	completeness := float64(populated) / 3.0

	data := map[string]any{
		"jurisdiction": meta.Jurisdiction,
		"court":        meta.Court,
		"venue":        meta.Venue,
		"judge":        meta.Judge,
	}

	// Metadata rows carry no per-field confidence; coverage is the best
	// available proxy.
	return newResult(data, completeness, completeness, dataPoints), nil
}
