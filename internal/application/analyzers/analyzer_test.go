package analyzers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/mocks"
)

func analyzerKey() domain.CaseKey {
	return domain.CaseKey{ClientID: "client-1", CaseID: "case-1"}
}

func entity(id, entityType, name string, confidence float64) domain.Entity {
	return domain.Entity{
		ID:         id,
		CaseID:     "case-1",
		Type:       entityType,
		Name:       name,
		Confidence: confidence,
	}
}

func relationship(id, relType, source, target string) domain.Relationship {
	return domain.Relationship{
		ID:         id,
		CaseID:     "case-1",
		Type:       relType,
		SourceID:   source,
		TargetID:   target,
		Confidence: 0.9,
	}
}

func seededStore() *mocks.MockCaseStore {
	store := mocks.NewMockCaseStore()
	filed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.SeedCase(&domain.CaseMetadata{
		CaseKey:      analyzerKey(),
		Name:         "Acme v. Bolt",
		Status:       domain.CaseStatusActive,
		FilingDate:   &filed,
		Jurisdiction: "California",
		Court:        "Superior Court of California",
		Venue:        "Los Angeles County",
		Judge:        "Hon. R. Alvarez",
	})
	return store
}

func TestNewRegistry(t *testing.T) {
	t.Run("Should wire one analyzer per dimension", func(t *testing.T) {
		registry := NewRegistry(mocks.NewMockGraph(), mocks.NewMockCaseStore(), zap.NewNop())

		require.Len(t, registry, len(domain.CanonicalDimensionOrder))
		for _, dim := range domain.CanonicalDimensionOrder {
			analyzer, ok := registry[dim]
			require.True(t, ok, "missing analyzer for %s", dim)
			assert.Equal(t, dim, analyzer.Dimension())
		}
	})
}

func TestScaled(t *testing.T) {
	assert.Equal(t, 0.0, scaled(0, 10))
	assert.Equal(t, 0.5, scaled(5, 10))
	assert.Equal(t, 1.0, scaled(10, 10))
	assert.Equal(t, 1.0, scaled(25, 10), "counts above the target saturate")
	assert.Equal(t, 0.0, scaled(-1, 10))
}

func TestNewResult(t *testing.T) {
	t.Run("Should mark sufficiency at the completeness threshold", func(t *testing.T) {
		below := newResult(map[string]any{}, 0.84, 0.9, 3)
		assert.False(t, below.Sufficient)

		at := newResult(map[string]any{}, domain.CompletenessThreshold, 0.9, 3)
		assert.True(t, at.Sufficient)
	})

	t.Run("Should clamp out-of-range scores", func(t *testing.T) {
		result := newResult(map[string]any{}, 1.3, -0.2, 0)
		assert.Equal(t, 1.0, result.Completeness)
		assert.Equal(t, 0.0, result.Confidence)
	})
}
