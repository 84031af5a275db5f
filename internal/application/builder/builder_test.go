package builder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"context-engine/internal/application/analyzers"
	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/mocks"
	"context-engine/internal/observability"
	apperrors "context-engine/pkg/errors"
)

// stubAnalyzer lets builder tests control per-dimension outcomes and timing
// without upstream seeding.
type stubAnalyzer struct {
	dim    domain.DimensionName
	result *domain.DimensionResult
	err    error
	delay  time.Duration
}

func (s *stubAnalyzer) Dimension() domain.DimensionName { return s.dim }

func (s *stubAnalyzer) Analyze(ctx context.Context, _ domain.CaseKey) (*domain.DimensionResult, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func okResult(completeness float64) *domain.DimensionResult {
	return &domain.DimensionResult{
		Data:         map[string]any{"points": 1},
		Completeness: completeness,
		Confidence:   0.9,
		DataPoints:   1,
		Sufficient:   completeness >= domain.CompletenessThreshold,
	}
}

func stubRegistry(stubs ...*stubAnalyzer) analyzers.Registry {
	registry := make(analyzers.Registry, len(stubs))
	for _, s := range stubs {
		registry[s.dim] = s
	}
	return registry
}

func allOKRegistry() analyzers.Registry {
	registry := make(analyzers.Registry, len(domain.CanonicalDimensionOrder))
	for _, dim := range domain.CanonicalDimensionOrder {
		registry[dim] = &stubAnalyzer{dim: dim, result: okResult(1.0)}
	}
	return registry
}

func testBuildConfig() config.Build {
	return config.Build{
		OverallDeadline:       30 * time.Second,
		MetadataTimeout:       time.Second,
		ScoringBudget:         50 * time.Millisecond,
		MaxParallelDimensions: 5,
		BatchWorkers:          5,
		MaxBatchSize:          50,
	}
}

func builderKey() domain.CaseKey {
	return domain.CaseKey{ClientID: "client-1", CaseID: "case-1"}
}

func seedBuilderCase(store *mocks.MockCaseStore, key domain.CaseKey) {
	filed := time.Now().AddDate(0, -3, 0)
	store.SeedCase(&domain.CaseMetadata{
		CaseKey:      key,
		Name:         "Acme v. Bolt",
		Status:       domain.CaseStatusActive,
		FilingDate:   &filed,
		Jurisdiction: "California",
		Court:        "Superior Court of California",
		Venue:        "Los Angeles County",
		Judge:        "Hon. R. Alvarez",
	})
}

func newTestBuilder(registry analyzers.Registry, store *mocks.MockCaseStore) *Builder {
	return NewBuilder(registry, store, testBuildConfig(), observability.NewCollector("test"), zap.NewNop())
}

func TestBuilderBuild(t *testing.T) {
	ctx := context.Background()
	key := builderKey()

	t.Run("Should assemble a complete record when every analyzer succeeds", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		b := newTestBuilder(allOKRegistry(), store)

		record, err := b.Build(ctx, key, domain.ScopeComprehensive, domain.ScopeComprehensive.Dimensions())
		require.NoError(t, err)

		assert.Equal(t, 1.0, record.ContextScore)
		assert.True(t, record.IsComplete)
		assert.False(t, record.Cached)
		assert.Equal(t, "Acme v. Bolt", record.CaseName)
		assert.Equal(t, domain.CaseStatusActive, record.CaseStatus)
		assert.Equal(t, domain.CanonicalDimensionOrder, record.RequestedDimensions())
		assert.Empty(t, record.FailureReasons())
		assert.False(t, record.BuiltAt.IsZero())
		assert.Greater(t, record.BuildLatency, time.Duration(0))
	})

	t.Run("Should double-penalize failed dimensions in the score", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		registry := stubRegistry(
			&stubAnalyzer{dim: domain.DimensionWho, result: okResult(1.0)},
			&stubAnalyzer{dim: domain.DimensionWhy, err: apperrors.NewUnavailable("graph service unavailable", nil)},
		)
		b := newTestBuilder(registry, store)

		record, err := b.Build(ctx, key, domain.ScopeComprehensive,
			[]domain.DimensionName{domain.DimensionWho, domain.DimensionWhy})
		require.NoError(t, err, "partial failure is a successful build")

		// (1.0 / 2) coverage times (1 / 2) success rate.
		assert.Equal(t, 0.25, record.ContextScore)
		assert.False(t, record.IsComplete)
		assert.Equal(t, "graph service unavailable", record.Dimensions[domain.DimensionWhy].FailureReason)
		assert.False(t, record.Dimensions[domain.DimensionWho].Failed())
	})

	t.Run("Should keep siblings running when one analyzer fails fast", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		registry := stubRegistry(
			&stubAnalyzer{dim: domain.DimensionWho, err: apperrors.NewRejected("bad query", nil)},
			&stubAnalyzer{dim: domain.DimensionWhat, result: okResult(0.9), delay: 80 * time.Millisecond},
		)
		b := newTestBuilder(registry, store)

		record, err := b.Build(ctx, key, domain.ScopeStandard,
			[]domain.DimensionName{domain.DimensionWho, domain.DimensionWhat})
		require.NoError(t, err)

		assert.True(t, record.Dimensions[domain.DimensionWho].Failed())
		require.False(t, record.Dimensions[domain.DimensionWhat].Failed(), "sibling must finish despite the failure")
		assert.Equal(t, 0.9, record.Dimensions[domain.DimensionWhat].Result.Completeness)
	})

	t.Run("Should mark analyzers that outlive the deadline as deadline exceeded", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		registry := stubRegistry(
			&stubAnalyzer{dim: domain.DimensionWho, result: okResult(1.0), delay: time.Second},
			&stubAnalyzer{dim: domain.DimensionWhere, result: okResult(1.0)},
		)
		b := newTestBuilder(registry, store)

		buildCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
		defer cancel()

		record, err := b.Build(buildCtx, key, domain.ScopeMinimal,
			[]domain.DimensionName{domain.DimensionWho, domain.DimensionWhere})
		require.NoError(t, err, "deadline expiry yields a partial record, not an error")

		assert.Equal(t, "deadline exceeded", record.Dimensions[domain.DimensionWho].FailureReason)
		assert.False(t, record.Dimensions[domain.DimensionWhere].Failed())
		assert.Equal(t, 0.25, record.ContextScore)
	})

	t.Run("Should fail the build when the case does not exist", func(t *testing.T) {
		b := newTestBuilder(allOKRegistry(), mocks.NewMockCaseStore())

		record, err := b.Build(ctx, key, domain.ScopeStandard, domain.ScopeStandard.Dimensions())
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Nil(t, record)
	})

	t.Run("Should proceed with unknown status when the metadata read fails", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		store.SetError("GetCaseMetadata", apperrors.NewUnavailable("case store down", nil))
		b := newTestBuilder(allOKRegistry(), store)

		record, err := b.Build(ctx, key, domain.ScopeMinimal, domain.ScopeMinimal.Dimensions())
		require.NoError(t, err)

		assert.Equal(t, domain.CaseStatusUnknown, record.CaseStatus)
		assert.Equal(t, "", record.CaseName)
		assert.Equal(t, 1.0, record.ContextScore, "analyzers are unaffected by the metadata miss")
	})

	t.Run("Should reject a key without a case id", func(t *testing.T) {
		b := newTestBuilder(allOKRegistry(), mocks.NewMockCaseStore())

		_, err := b.Build(ctx, domain.CaseKey{ClientID: "client-1"}, domain.ScopeMinimal, domain.ScopeMinimal.Dimensions())
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeMissingCaseID, apperrors.CodeOf(err))
	})

	t.Run("Should reject an empty or unknown dimension set", func(t *testing.T) {
		b := newTestBuilder(allOKRegistry(), mocks.NewMockCaseStore())

		_, err := b.Build(ctx, key, domain.ScopeMinimal, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))

		_, err = b.Build(ctx, key, domain.ScopeMinimal, []domain.DimensionName{"BOGUS"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("Should fold duplicate dimensions into one entry", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		b := newTestBuilder(allOKRegistry(), store)

		record, err := b.Build(ctx, key, domain.ScopeMinimal,
			[]domain.DimensionName{domain.DimensionWho, domain.DimensionWho, domain.DimensionWhere})
		require.NoError(t, err)

		assert.Len(t, record.Dimensions, 2)
		assert.Equal(t, 1.0, record.ContextScore)
	})
}

// TestBuilderDegradedGraph drives the real analyzers through an unavailable
// graph: the four store-backed dimensions recover, the strategy dimension
// cannot.
func TestBuilderDegradedGraph(t *testing.T) {
	ctx := context.Background()
	key := builderKey()

	graph := mocks.NewMockGraph()
	unavailable := apperrors.NewUnavailable("graph service unavailable", nil)
	graph.SetError("QueryCase", unavailable)
	graph.SetError("ListCaseEntities", unavailable)
	graph.SetError("ListCaseRelationships", unavailable)
	graph.SetError("Research", unavailable)

	store := mocks.NewMockCaseStore()
	seedBuilderCase(store, key)

	// Participants
	p1 := domain.Entity{ID: "p1", CaseID: key.CaseID, Type: domain.EntityTypeParty, Name: "Acme Corp", Confidence: 0.95}
	p2 := domain.Entity{ID: "p2", CaseID: key.CaseID, Type: domain.EntityTypeParty, Name: "Bolt LLC", Confidence: 0.9}
	a1 := domain.Entity{ID: "a1", CaseID: key.CaseID, Type: domain.EntityTypeAttorney, Name: "S. Chen", Confidence: 0.92,
		Properties: map[string]any{"represents": []any{"p1", "p2"}}}
	store.SeedEntities(key, p1, p2, a1,
		domain.Entity{ID: "j1", CaseID: key.CaseID, Type: domain.EntityTypeJudge, Name: "Hon. R. Alvarez", Confidence: 0.99},
		domain.Entity{ID: "w1", CaseID: key.CaseID, Type: domain.EntityTypeWitness, Name: "T. Romero", Confidence: 0.8})

	// Subject matter: 3 issues, 1 cause, 10 citations.
	for i, name := range []string{"Duty of care", "Causation", "Damages"} {
		store.SeedEntities(key, domain.Entity{ID: "i" + string(rune('1'+i)), CaseID: key.CaseID,
			Type: domain.EntityTypeLegalIssue, Name: name, Confidence: 0.9})
	}
	store.SeedEntities(key, domain.Entity{ID: "c1", CaseID: key.CaseID,
		Type: domain.EntityTypeCauseOfAction, Name: "Negligence", Confidence: 0.95})
	for i := 0; i < 10; i++ {
		store.SeedEntities(key, domain.Entity{ID: "s" + string(rune('a'+i)), CaseID: key.CaseID,
			Type: domain.EntityTypeStatuteCitation, Name: "Cal. Civ. Code", Confidence: 0.9})
	}

	// Timeline: 5 plain events + 5 open deadlines.
	now := time.Now()
	for i := 0; i < 5; i++ {
		store.SeedEvents(key, domain.CaseEvent{ID: "e" + string(rune('a'+i)), Type: "hearing",
			Title: "Hearing", Date: now.AddDate(0, 0, -30+i)})
		store.SeedEvents(key, domain.CaseEvent{ID: "d" + string(rune('a'+i)), Type: "deadline",
			Title: "Deadline", Date: now.AddDate(0, 0, 7+i*7), Deadline: true})
	}

	registry := analyzers.NewRegistry(graph, store, zap.NewNop())
	b := NewBuilder(registry, store, testBuildConfig(), observability.NewCollector("test"), zap.NewNop())

	record, err := b.Build(ctx, key, domain.ScopeComprehensive, domain.ScopeComprehensive.Dimensions())
	require.NoError(t, err)

	assert.InDelta(t, 0.64, record.ContextScore, 1e-9, "four of five at full coverage, double penalty for the fifth")
	assert.False(t, record.IsComplete)

	for _, dim := range []domain.DimensionName{domain.DimensionWho, domain.DimensionWhat, domain.DimensionWhere, domain.DimensionWhen} {
		entry := record.Dimensions[dim]
		require.False(t, entry.Failed(), "%s must recover from the store", dim)
		assert.Equal(t, 1.0, entry.Result.Completeness, "%s completeness", dim)
	}
	assert.Equal(t, "casedb", record.Dimensions[domain.DimensionWho].Result.Data["source"])
	assert.Equal(t, "casedb", record.Dimensions[domain.DimensionWhat].Result.Data["source"])

	why := record.Dimensions[domain.DimensionWhy]
	require.True(t, why.Failed())
	assert.Equal(t, "graph service unavailable", why.FailureReason)
}

func TestBuilderBuildDimension(t *testing.T) {
	ctx := context.Background()
	key := builderKey()

	t.Run("Should run a single analyzer directly", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		registry := stubRegistry(&stubAnalyzer{dim: domain.DimensionWho, result: okResult(0.9)})
		b := newTestBuilder(registry, store)

		result, err := b.BuildDimension(ctx, key, domain.DimensionWho)
		require.NoError(t, err)
		assert.Equal(t, 0.9, result.Completeness)
	})

	t.Run("Should fail for an unknown case", func(t *testing.T) {
		registry := stubRegistry(&stubAnalyzer{dim: domain.DimensionWho, result: okResult(0.9)})
		b := newTestBuilder(registry, mocks.NewMockCaseStore())

		_, err := b.BuildDimension(ctx, key, domain.DimensionWho)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("Should propagate analyzer failures", func(t *testing.T) {
		store := mocks.NewMockCaseStore()
		seedBuilderCase(store, key)
		registry := stubRegistry(&stubAnalyzer{dim: domain.DimensionWhy, err: apperrors.NewUnavailable("graph service unavailable", nil)})
		b := newTestBuilder(registry, store)

		_, err := b.BuildDimension(ctx, key, domain.DimensionWhy)
		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
	})

	t.Run("Should reject an unknown dimension", func(t *testing.T) {
		b := newTestBuilder(allOKRegistry(), mocks.NewMockCaseStore())

		_, err := b.BuildDimension(ctx, key, "HOW")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}
