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

func TestWhoAnalyzer(t *testing.T) {
	ctx := context.Background()
	key := analyzerKey()

	t.Run("Should score a fully staffed case at full completeness", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SeedEntities(domain.EntityTypeParty,
			entity("p1", domain.EntityTypeParty, "Acme Corp", 0.95),
			entity("p2", domain.EntityTypeParty, "Bolt LLC", 0.90))
		graph.SeedEntities(domain.EntityTypeJudge,
			entity("j1", domain.EntityTypeJudge, "Hon. R. Alvarez", 0.99))
		graph.SeedEntities(domain.EntityTypeAttorney,
			entity("a1", domain.EntityTypeAttorney, "S. Chen", 0.92),
			entity("a2", domain.EntityTypeAttorney, "D. Okafor", 0.88))
		graph.SeedEntities(domain.EntityTypeWitness,
			entity("w1", domain.EntityTypeWitness, "T. Romero", 0.75))
		graph.SeedRelationships(
			relationship("r1", domain.RelationshipRepresents, "a1", "p1"),
			relationship("r2", domain.RelationshipRepresents, "a2", "p2"),
			relationship("r3", domain.RelationshipOpposes, "p1", "p2"))

		analyzer := NewWhoAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, 1.0, result.Completeness)
		assert.True(t, result.Sufficient)
		assert.Equal(t, "graph", result.Data["source"])
		assert.Equal(t, 2, result.Data["party_count"])
		assert.Equal(t, 1, result.Data["witness_count"])
		assert.Empty(t, result.Data["unrepresented"])
		assert.Len(t, result.Data["representation"], 2)
		assert.Len(t, result.Data["opposition"], 1)
		assert.Equal(t, 9, result.DataPoints, "6 entities plus 3 relationships")
		assert.InDelta(t, 0.898, result.Confidence, 0.001)
	})

	t.Run("Should dock the representation weight when a party has no counsel", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SeedEntities(domain.EntityTypeParty,
			entity("p1", domain.EntityTypeParty, "Acme Corp", 0.95),
			entity("p2", domain.EntityTypeParty, "Bolt LLC", 0.90))
		graph.SeedEntities(domain.EntityTypeJudge,
			entity("j1", domain.EntityTypeJudge, "Hon. R. Alvarez", 0.99))
		graph.SeedEntities(domain.EntityTypeWitness,
			entity("w1", domain.EntityTypeWitness, "T. Romero", 0.75))
		graph.SeedRelationships(
			relationship("r1", domain.RelationshipRepresents, "a1", "p1"))

		analyzer := NewWhoAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.InDelta(t, 0.80, result.Completeness, 1e-9)
		assert.False(t, result.Sufficient)
		assert.Equal(t, []string{"p2"}, result.Data["unrepresented"])
	})

	t.Run("Should order entity lists by confidence then id", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SeedEntities(domain.EntityTypeParty,
			entity("p2", domain.EntityTypeParty, "Bolt LLC", 0.80),
			entity("p3", domain.EntityTypeParty, "Crux Inc", 0.80),
			entity("p1", domain.EntityTypeParty, "Acme Corp", 0.95))

		analyzer := NewWhoAnalyzer(graph, mocks.NewMockCaseStore(), zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		parties := result.Data["parties"].([]domain.Entity)
		require.Len(t, parties, 3)
		assert.Equal(t, []string{"p1", "p2", "p3"}, []string{parties[0].ID, parties[1].ID, parties[2].ID})
	})

	t.Run("Should fall back to the case store when the graph is unavailable", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SetError("ListCaseEntities", apperrors.NewUnavailable("graph service unavailable", nil))

		store := mocks.NewMockCaseStore()
		p1 := entity("p1", domain.EntityTypeParty, "Acme Corp", 0.95)
		p2 := entity("p2", domain.EntityTypeParty, "Bolt LLC", 0.90)
		a1 := entity("a1", domain.EntityTypeAttorney, "S. Chen", 0.92)
		a1.Properties = map[string]any{"represents": []any{"p1", "p2"}}
		store.SeedEntities(key, p1, p2, a1,
			entity("j1", domain.EntityTypeJudge, "Hon. R. Alvarez", 0.99),
			entity("w1", domain.EntityTypeWitness, "T. Romero", 0.75))

		analyzer := NewWhoAnalyzer(graph, store, zap.NewNop())
		result, err := analyzer.Analyze(ctx, key)

		require.NoError(t, err)
		assert.Equal(t, "casedb", result.Data["source"])
		assert.Equal(t, 1.0, result.Completeness, "store rows can fully satisfy the dimension")
		assert.Empty(t, result.Data["unrepresented"])

		represents := result.Data["representation"].([]domain.Relationship)
		require.Len(t, represents, 2)
		for _, r := range represents {
			assert.Equal(t, "a1", r.SourceID)
			assert.Equal(t, domain.RelationshipRepresents, r.Type)
		}
	})

	t.Run("Should propagate non-availability graph errors without falling back", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SetError("ListCaseEntities", apperrors.NewRejected("graph rejected the query", nil))

		store := seededStore()
		analyzer := NewWhoAnalyzer(graph, store, zap.NewNop())

		_, err := analyzer.Analyze(ctx, key)
		require.Error(t, err)
		assert.True(t, apperrors.IsRejected(err))
		assert.Equal(t, 0, store.CallCount("ListEntities"))
	})

	t.Run("Should propagate store failures on the fallback path", func(t *testing.T) {
		graph := mocks.NewMockGraph()
		graph.SetError("ListCaseRelationships", apperrors.NewUnavailable("graph service unavailable", nil))

		store := mocks.NewMockCaseStore()
		store.SetError("ListEntities", apperrors.NewUnavailable("case store down", nil))

		analyzer := NewWhoAnalyzer(graph, store, zap.NewNop())
		_, err := analyzer.Analyze(ctx, key)

		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
	})
}
