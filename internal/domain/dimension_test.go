package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	t.Run("KnownScopes", func(t *testing.T) {
		for input, want := range map[string]Scope{
			"minimal":       ScopeMinimal,
			"standard":      ScopeStandard,
			"comprehensive": ScopeComprehensive,
			"MINIMAL":       ScopeMinimal,
			" Standard ":    ScopeStandard,
		} {
			got, err := ParseScope(input)
			require.NoError(t, err, "input %q", input)
			assert.Equal(t, want, got)
		}
	})

	t.Run("UnknownScope", func(t *testing.T) {
		_, err := ParseScope("exhaustive")
		assert.ErrorIs(t, err, ErrUnknownScope)
	})
}

func TestScopeDimensions(t *testing.T) {
	assert.Equal(t, []DimensionName{DimensionWho, DimensionWhere}, ScopeMinimal.Dimensions())
	assert.Equal(t, []DimensionName{DimensionWho, DimensionWhat, DimensionWhere, DimensionWhen}, ScopeStandard.Dimensions())
	assert.Equal(t, CanonicalDimensionOrder, ScopeComprehensive.Dimensions())
}

func TestParseDimension(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		for _, input := range []string{"who", "WHO", "Who", " who "} {
			dim, err := ParseDimension(input)
			require.NoError(t, err)
			assert.Equal(t, DimensionWho, dim)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseDimension("HOW")
		assert.ErrorIs(t, err, ErrUnknownDimension)
	})
}

func TestResolveDimensions(t *testing.T) {
	t.Run("ScopeOnly", func(t *testing.T) {
		dims, err := ResolveDimensions(ScopeMinimal, nil)
		require.NoError(t, err)
		assert.Equal(t, []DimensionName{DimensionWho, DimensionWhere}, dims)
	})

	t.Run("ExplicitOverridesScope", func(t *testing.T) {
		dims, err := ResolveDimensions(ScopeComprehensive, []string{"when"})
		require.NoError(t, err)
		assert.Equal(t, []DimensionName{DimensionWhen}, dims)
	})

	t.Run("NormalizedAndDeduplicated", func(t *testing.T) {
		dims, err := ResolveDimensions(ScopeMinimal, []string{"why", "WHO", "who"})
		require.NoError(t, err)
		assert.Equal(t, []DimensionName{DimensionWho, DimensionWhy}, dims)
	})

	t.Run("CanonicalOrdering", func(t *testing.T) {
		dims, err := ResolveDimensions(ScopeMinimal, []string{"WHY", "WHEN", "WHO"})
		require.NoError(t, err)
		assert.Equal(t, []DimensionName{DimensionWho, DimensionWhen, DimensionWhy}, dims)
	})

	t.Run("UnknownName", func(t *testing.T) {
		_, err := ResolveDimensions(ScopeStandard, []string{"WHO", "WHOM"})
		assert.ErrorIs(t, err, ErrUnknownDimension)
	})

	t.Run("UnknownScopeWithoutOverride", func(t *testing.T) {
		_, err := ResolveDimensions(Scope("broad"), nil)
		assert.Error(t, err)
	})
}

func TestCanonicalDimset(t *testing.T) {
	a := CanonicalDimset([]DimensionName{DimensionWho, DimensionWhere})
	b := CanonicalDimset([]DimensionName{DimensionWhere, DimensionWho})
	assert.Equal(t, a, b)
	assert.Equal(t, "WHERE,WHO", a)
}
