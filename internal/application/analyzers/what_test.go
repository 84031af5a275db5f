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

func seedSubjectMatter(graph *mocks.MockGraph, statutes, caseCites int) {
	graph.SeedEntities(domain.EntityTypeLegalIssue,
		entity("i1", domain.EntityTypeLegalIssue, "Duty of care", 0.9),
		entity("i2", domain.EntityTypeLegalIssue, "Causation", 0.85),
		entity("i3", domain.EntityTypeLegalIssue, "Damages", 0.8))
	graph.SeedEntities(domain.EntityTypeCauseOfAction,
		entity("c1", domain.EntityTypeCauseOfAction, "Negligence", 0.95))
	for i := 0; i < statutes; i++ {
		graph.SeedEntities(domain.EntityTypeStatuteCitation,
			entity("s"+string(rune('a'+i)), domain.EntityTypeStatuteCitation, "Cal. Civ. Code", 0.9))
	}
	for i := 0; i < caseCites; i++ {
		graph.SeedEntities(domain.EntityTypeCaseCitation,
			entity("cc"+string(rune('a'+i)), domain.EntityTypeCaseCitation, "Rowland v. Christian", 0.9))
	}
}

func TestWhatAnalyzer(t *testing.T) {
	ctx := context.Background()
	key := analyzerKey()

	t.Run("Should score full subject matter at full completeness", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedSubjectMatter(graph, 6, 4)
		graph.SetQueryResult("primary legal theory", &domain.QueryResult{
			Answer:     "Negligence per se based on the building code violation.",
			Confidence: 0.88,
		})

		analyzer := NewWhatAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, 1.0, result.Completeness)
		assert.True(t, result.Sufficient)
		assert.Equal(t, "graph", result.Data["source"])
		assert.Equal(t, 10, result.Data["citation_count"])
		assert.Equal(t, "Negligence per se based on the building code violation.", result.Data["primary_theory"])
	})

	t.Run("Should scale the citation weight below the target", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedSubjectMatter(graph, 3, 2)
		graph.SetQueryResult("primary legal theory", &domain.QueryResult{Answer: "Negligence."})

		analyzer := NewWhatAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		// 0.25 issues + 0.25 cause + 5/10*0.30 citations + 0.20 theory
		assert.InDelta(t, 0.85, result.Completeness, 1e-9)
		assert.True(t, result.Sufficient)
	})

	t.Run("Should treat a blank answer as no theory", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedSubjectMatter(graph, 6, 4)
		graph.SetQueryResult("primary legal theory", &domain.QueryResult{Answer: "   "})

		analyzer := NewWhatAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.InDelta(t, 0.80, result.Completeness, 1e-9)
		assert.Equal(t, "", result.Data["primary_theory"])
	})

	t.Run("Should fall back to the case store and pick the strongest cause as theory", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SetError("ListCaseEntities", apperrors.NewUnavailable("graph service unavailable", nil))

		store := mocks.NewMockCaseStore()
		store.SeedEntities(key,
			entity("i1", domain.EntityTypeLegalIssue, "Duty of care", 0.9),
			entity("c2", domain.EntityTypeCauseOfAction, "Premises liability", 0.70),
			entity("c1", domain.EntityTypeCauseOfAction, "Negligence", 0.95),
			entity("s1", domain.EntityTypeStatuteCitation, "Cal. Civ. Code 1714", 0.9))

		analyzer := NewWhatAnalyzer(graph, store, zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, "casedb", result.Data["source"])
		assert.Equal(t, "Negligence", result.Data["primary_theory"], "highest-confidence cause wins")
		assert.Equal(t, 1, result.Data["citation_count"])
	})

	t.Run("Should fall back when only the theory query is unavailable", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		seedSubjectMatter(graph, 1, 0)
		graph.SetError("QueryCase", apperrors.NewUnavailable("query engine warming up", nil))

		store := mocks.NewMockCaseStore()
		store.SeedEntities(key,
			entity("d1", domain.EntityTypeLegalDoctrine, "Res ipsa loquitur", 0.8))

		analyzer := NewWhatAnalyzer(graph, store, zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, "casedb", result.Data["source"])
		assert.Equal(t, "Res ipsa loquitur", result.Data["primary_theory"], "doctrine stands in when no cause exists")
	})

	t.Run("Should propagate non-availability errors", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SetError("ListCaseEntities", apperrors.NewRejected("malformed query", nil))

		analyzer := NewWhatAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		_, err := analyzer.Analyze(ctx, key)

		require.Error(t, err)
		assert.True(t, apperrors.IsRejected(err))
	})
}
