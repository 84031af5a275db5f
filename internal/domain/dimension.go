package domain

import (
	"sort"
	"strings"
)

// DimensionName is one of the five context dimensions.
type DimensionName string

const (
	DimensionWho   DimensionName = "WHO"
	DimensionWhat  DimensionName = "WHAT"
	DimensionWhere DimensionName = "WHERE"
	DimensionWhen  DimensionName = "WHEN"
	DimensionWhy   DimensionName = "WHY"
)

// CanonicalDimensionOrder fixes result iteration order irrespective of
// analyzer completion order.
var CanonicalDimensionOrder = []DimensionName{
	DimensionWho,
	DimensionWhat,
	DimensionWhere,
	DimensionWhen,
	DimensionWhy,
}

// ParseDimension normalizes a dimension name case-insensitively.
func ParseDimension(name string) (DimensionName, error) {
	switch DimensionName(strings.ToUpper(strings.TrimSpace(name))) {
	case DimensionWho:
		return DimensionWho, nil
	case DimensionWhat:
		return DimensionWhat, nil
	case DimensionWhere:
		return DimensionWhere, nil
	case DimensionWhen:
		return DimensionWhen, nil
	case DimensionWhy:
		return DimensionWhy, nil
	default:
		return "", ErrUnknownDimension
	}
}

// Scope is a named bundle of dimensions.
type Scope string

const (
	ScopeMinimal       Scope = "minimal"
	ScopeStandard      Scope = "standard"
	ScopeComprehensive Scope = "comprehensive"
)

// scopeDimensions is the scope → dimension-set table.
var scopeDimensions = map[Scope][]DimensionName{
	ScopeMinimal:       {DimensionWho, DimensionWhere},
	ScopeStandard:      {DimensionWho, DimensionWhat, DimensionWhere, DimensionWhen},
	ScopeComprehensive: {DimensionWho, DimensionWhat, DimensionWhere, DimensionWhen, DimensionWhy},
}

// ParseScope normalizes a scope name case-insensitively.
func ParseScope(name string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(name))) {
	case ScopeMinimal:
		return ScopeMinimal, nil
	case ScopeStandard:
		return ScopeStandard, nil
	case ScopeComprehensive:
		return ScopeComprehensive, nil
	default:
		return "", ErrUnknownScope
	}
}

// Dimensions returns the dimension set for the scope, in canonical order.
func (s Scope) Dimensions() []DimensionName {
	dims := scopeDimensions[s]
	out := make([]DimensionName, len(dims))
	copy(out, dims)
	return out
}

// ResolveDimensions computes the effective dimension set for a request. An
// explicit non-empty include list overrides the scope; names are normalized
// and deduplicated. The returned set is in canonical order and never empty.
func ResolveDimensions(scope Scope, include []string) ([]DimensionName, error) {
	if len(include) == 0 {
		dims := scope.Dimensions()
		if len(dims) == 0 {
			return nil, ErrUnknownScope
		}
		return dims, nil
	}

	requested := make(map[DimensionName]bool, len(include))
	for _, name := range include {
		dim, err := ParseDimension(name)
		if err != nil {
			return nil, err
		}
		requested[dim] = true
	}

	out := make([]DimensionName, 0, len(requested))
	for _, dim := range CanonicalDimensionOrder {
		if requested[dim] {
			out = append(out, dim)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyDimensionSet
	}
	return out, nil
}

// CanonicalDimset renders a dimension set as a stable fingerprint input:
// sorted lexicographically and comma-joined, so {WHO,WHERE} and {WHERE,WHO}
// produce the same string.
func CanonicalDimset(dims []DimensionName) string {
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = string(d)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
