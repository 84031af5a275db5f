package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheKey(t *testing.T) {
	key := CaseKey{ClientID: "C1", CaseID: "K1"}

	t.Run("OrderIndependent", func(t *testing.T) {
		a := NewCacheKey(key, []DimensionName{DimensionWho, DimensionWhere})
		b := NewCacheKey(key, []DimensionName{DimensionWhere, DimensionWho})
		assert.Equal(t, a, b)
	})

	t.Run("ScopeResolvesToSameKeyAsExplicitSet", func(t *testing.T) {
		fromScope := NewCacheKey(key, ScopeStandard.Dimensions())
		explicit, err := ResolveDimensions(ScopeMinimal, []string{"WHEN", "WHAT", "WHERE", "WHO"})
		require.NoError(t, err)
		assert.Equal(t, fromScope, NewCacheKey(key, explicit))
	})

	t.Run("DistinctDimsetsDistinctKeys", func(t *testing.T) {
		a := NewCacheKey(key, ScopeMinimal.Dimensions())
		b := NewCacheKey(key, ScopeStandard.Dimensions())
		assert.NotEqual(t, a, b)
	})

	t.Run("DistinctCasesDistinctKeys", func(t *testing.T) {
		other := CaseKey{ClientID: "C1", CaseID: "K2"}
		a := NewCacheKey(key, ScopeMinimal.Dimensions())
		b := NewCacheKey(other, ScopeMinimal.Dimensions())
		assert.NotEqual(t, a, b)
	})

	t.Run("CarriesCasePrefix", func(t *testing.T) {
		k := NewCacheKey(key, ScopeMinimal.Dimensions())
		assert.True(t, strings.HasPrefix(string(k), CasePrefix(key)))
	})
}

func TestCacheEntryExpired(t *testing.T) {
	now := time.Now()
	entry := &CacheEntry{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, entry.Expired(now))
	assert.True(t, entry.Expired(now.Add(time.Minute)))
	assert.True(t, entry.Expired(now.Add(2*time.Minute)))
}

func TestContextRecordClone(t *testing.T) {
	record := &ContextRecord{
		CaseKey:      CaseKey{ClientID: "C1", CaseID: "K1"},
		Dimensions:   map[DimensionName]*DimensionEntry{DimensionWho: {Result: &DimensionResult{Completeness: 1.0}}},
		ContextScore: 1.0,
		IsComplete:   true,
	}

	clone := record.Clone()
	clone.Cached = true

	assert.False(t, record.Cached, "clone must not mutate the original")
	assert.Equal(t, record.ContextScore, clone.ContextScore)
	assert.Same(t, record.Dimensions[DimensionWho], clone.Dimensions[DimensionWho])
}

func TestRequestedDimensionsCanonicalOrder(t *testing.T) {
	record := &ContextRecord{
		Dimensions: map[DimensionName]*DimensionEntry{
			DimensionWhy:   {},
			DimensionWho:   {},
			DimensionWhere: {},
		},
	}
	assert.Equal(t, []DimensionName{DimensionWho, DimensionWhere, DimensionWhy}, record.RequestedDimensions())
}
