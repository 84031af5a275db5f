package cache

import (
	"context"
	"sync/atomic"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
)

// NoopTier fills the distributed and persistent slots in the tier chain until
// real backends ship. It never stores, so every lookup is a miss.
type NoopTier struct {
	name   string
	misses int64
}

// NewNoopTier creates a named no-op tier.
func NewNoopTier(name string) *NoopTier {
	return &NoopTier{name: name}
}

// Name implements ports.CacheTier.
func (t *NoopTier) Name() string { return t.name }

// Get always misses.
func (t *NoopTier) Get(_ context.Context, _ domain.CacheKey) (*domain.CacheEntry, bool) {
	atomic.AddInt64(&t.misses, 1)
	return nil, false
}

// Put discards the entry.
func (t *NoopTier) Put(_ context.Context, _ domain.CacheKey, _ *domain.CacheEntry) {}

// Delete removes nothing.
func (t *NoopTier) Delete(_ context.Context, _ domain.CacheKey) int { return 0 }

// DeletePrefix removes nothing.
func (t *NoopTier) DeletePrefix(_ context.Context, _ string) int { return 0 }

// Stats reports the miss count; everything else stays zero.
func (t *NoopTier) Stats() ports.TierStats {
	return ports.TierStats{Misses: atomic.LoadInt64(&t.misses)}
}
