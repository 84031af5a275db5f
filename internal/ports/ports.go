// Package ports defines the interfaces the assembly pipeline depends on:
// the knowledge-graph client, the case store, and cache tiers. Concrete
// implementations live under internal/infrastructure; tests use
// internal/mocks.
package ports

import (
	"context"
	"time"

	"context-engine/internal/domain"
)

// EntityFilter narrows a case-scoped entity listing.
type EntityFilter struct {
	Type          string
	MinConfidence float64
	Limit         int
}

// RelationshipFilter narrows a case-scoped relationship listing.
type RelationshipFilter struct {
	Type          string
	MinConfidence float64
}

// GraphQuerier is the only doorway to the knowledge-graph service. Every
// case-scoped call carries the case key; implementations enforce case
// isolation on both the request and the response.
type GraphQuerier interface {
	// QueryCase runs a case-scoped graph query. Fails with a missing-case-id
	// error before any network I/O when the key has no case id.
	QueryCase(ctx context.Context, key domain.CaseKey, query string, searchType domain.SearchType, limit int) (*domain.QueryResult, error)

	// ListCaseEntities lists entities belonging to the case.
	ListCaseEntities(ctx context.Context, key domain.CaseKey, filter EntityFilter) ([]domain.Entity, error)

	// ListCaseRelationships lists relationships belonging to the case.
	ListCaseRelationships(ctx context.Context, key domain.CaseKey, filter RelationshipFilter) ([]domain.Relationship, error)

	// Research runs a cross-case query; it requires the client id but not the
	// case id. Results are tagged with the querying case key.
	Research(ctx context.Context, key domain.CaseKey, query, jurisdiction string, searchType domain.SearchType) (*domain.QueryResult, error)

	// Health probes the graph service.
	Health(ctx context.Context) error
}

// CaseStore is the narrow interface to the relational case store. All
// implementations must filter by both client id and case id.
type CaseStore interface {
	// GetCaseMetadata returns the case row, or a not-found error.
	GetCaseMetadata(ctx context.Context, key domain.CaseKey) (*domain.CaseMetadata, error)

	// ListEntities lists stored entities of the given types.
	ListEntities(ctx context.Context, key domain.CaseKey, types []string, limit int) ([]domain.Entity, error)

	// ListEvents lists timeline events, optionally bounded by time.
	ListEvents(ctx context.Context, key domain.CaseKey, since, until *time.Time) ([]domain.CaseEvent, error)
}

// TierStats is a point-in-time snapshot of one tier's counters.
type TierStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// CacheTier is one layer of the read-through chain. Tier failures are
// absorbed as misses; the pipeline never fails because a cache did.
type CacheTier interface {
	// Name identifies the tier in stats and logs.
	Name() string

	// Get returns a live entry; expired entries are treated as absent.
	Get(ctx context.Context, key domain.CacheKey) (*domain.CacheEntry, bool)

	// Put atomically replaces the entry for the key.
	Put(ctx context.Context, key domain.CacheKey, entry *domain.CacheEntry)

	// Delete removes the key, reporting how many entries were removed.
	Delete(ctx context.Context, key domain.CacheKey) int

	// DeletePrefix removes every entry whose key starts with prefix; used for
	// case-wide invalidation.
	DeletePrefix(ctx context.Context, prefix string) int

	// Stats snapshots the tier's counters.
	Stats() TierStats
}
