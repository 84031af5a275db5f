package analyzers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/mocks"
	apperrors "context-engine/pkg/errors"
)

// seedStrategy registers answers for all five strategy sub-queries.
func seedStrategy(graph *mocks.MockGraph, precedents int) {
	graph.SetQueryResult("legal theories", &domain.QueryResult{
		Answer: "Negligence and premises liability both have strong support.",
		Entities: []domain.Entity{
			entity("t1", domain.EntityTypeCauseOfAction, "Negligence", 0.9),
			entity("t2", domain.EntityTypeCauseOfAction, "Premises liability", 0.8),
		},
		Confidence: 0.85,
	})
	graph.SetQueryResult("risks and weaknesses", &domain.QueryResult{
		Answer:     "Comparative fault exposure and a thin expert record.",
		Confidence: 0.8,
	})

	precedentEntities := make([]domain.Entity, 0, precedents)
	for i := 0; i < precedents; i++ {
		precedentEntities = append(precedentEntities,
			entity("pr"+string(rune('a'+i)), domain.EntityTypeCaseCitation, "Precedent", 0.9))
	}
	graph.SetQueryResult("precedent cases", &domain.QueryResult{
		Answer:     "Several on-point appellate decisions.",
		Entities:   precedentEntities,
		Confidence: 0.9,
	})
	graph.SetQueryResult("similar cases been resolved", &domain.QueryResult{
		Answer:     "Comparable matters settled before trial.",
		Confidence: 0.75,
	})
	graph.SetQueryResult("ruling patterns", &domain.QueryResult{
		Answer:     "Grants summary judgment sparingly.",
		Confidence: 0.7,
	})
}

func TestWhyAnalyzer(t *testing.T) {
	ctx := context.Background()
	key := analyzerKey()

	t.Run("Should score a full strategy picture at full completeness", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedStrategy(graph, 10)

		analyzer := NewWhyAnalyzer(graph, seededStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, 1.0, result.Completeness)
		assert.True(t, result.Sufficient)
		assert.Equal(t, 10, result.Data["precedent_count"])
		assert.Equal(t, "Comparative fault exposure and a thin expert record.", result.Data["risks"])
		assert.Equal(t, "Grants summary judgment sparingly.", result.Data["judge_patterns"])
		assert.InDelta(t, 0.80, result.Confidence, 1e-9, "mean of the five sub-result confidences")
		assert.Equal(t, 2, graph.CallCount("QueryCase"))
		assert.Equal(t, 3, graph.CallCount("Research"))
	})

	t.Run("Should tag research results with the querying case", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedStrategy(graph, 3)

		analyzer := NewWhyAnalyzer(graph, seededStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		precedents := result.Data["precedents"].([]domain.Entity)
		require.Len(t, precedents, 3)
		for _, p := range precedents {
			assert.Equal(t, key.CaseID, p.CaseID, "cross-case results must carry the querying case id")
		}
	})

	t.Run("Should skip the judge sub-query when no judge is assigned", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedStrategy(graph, 10)

		store := mocks.NewMockCaseStore()
		store.SeedCase(&domain.CaseMetadata{
			CaseKey:      key,
			Status:       domain.CaseStatusActive,
			Jurisdiction: "California",
		})

		analyzer := NewWhyAnalyzer(graph, store, zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, 2, graph.CallCount("Research"), "no judge, no judge-pattern research")
		assert.InDelta(t, 0.85, result.Completeness, 1e-9, "the judge weight cannot be earned")
		assert.Equal(t, "", result.Data["judge_patterns"])
	})

	t.Run("Should degrade when research fails but case queries answer", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedStrategy(graph, 10)
		graph.SetError("Research", apperrors.NewUnavailable("research tier overloaded", nil))

		analyzer := NewWhyAnalyzer(graph, seededStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err, "partial sub-query failure degrades, not fails")
		// Only theories (0.20) and risks (0.20) can score.
		assert.InDelta(t, 0.40, result.Completeness, 1e-9)
		assert.False(t, result.Sufficient)
		assert.Equal(t, 0, result.Data["precedent_count"])
		assert.Equal(t, "", result.Data["similar_outcomes"])
	})

	t.Run("Should fail when every sub-query fails", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		unavailable := apperrors.NewUnavailable("graph service unavailable", nil)
		graph.SetError("QueryCase", unavailable)
		graph.SetError("Research", unavailable)

		analyzer := NewWhyAnalyzer(graph, seededStore(), zap.NewNop())
		_, err := analyzer.Analyze(ctx, key)

		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
	})

	t.Run("Should run research unscoped when metadata is unreachable", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedStrategy(graph, 10)

		store := seededStore()
		store.SetError("GetCaseMetadata", apperrors.NewUnavailable("case store flaking", nil))

		analyzer := NewWhyAnalyzer(graph, store, zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, 2, graph.CallCount("Research"), "unknown judge skips the judge sub-query")
		assert.InDelta(t, 0.85, result.Completeness, 1e-9)
	})

	t.Run("Should fail when the case does not exist", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedStrategy(graph, 10)

		analyzer := NewWhyAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		_, err := analyzer.Analyze(ctx, key)

		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
		assert.Equal(t, 0, graph.TotalCalls(), "existence check precedes graph work")
	})
}
