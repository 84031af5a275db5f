package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/observability"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

const (
	defaultMemoryTTL     = 10 * time.Minute
	defaultActiveCaseTTL = time.Hour
	defaultClosedCaseTTL = 24 * time.Hour
)

// BuildFunc produces a fresh context record for one case and dimension set.
type BuildFunc func(ctx context.Context) (*domain.ContextRecord, error)

// Manager composes the tier chain with single-flight builds, write-through
// stores, and invalidation. Concurrent requests for the same cache key share
// one build; invalidating a case forgets its in-flight builds so later
// callers start fresh ones.
type Manager struct {
	tiers []ports.CacheTier // warmest first

	ttlMu     sync.RWMutex // TTL policy is hot-reloadable
	memoryTTL time.Duration
	activeTTL time.Duration
	closedTTL time.Duration

	flight    singleflight.Group
	logger    *zap.Logger
	collector *observability.Collector

	mu          sync.Mutex
	inFlight    map[string]map[domain.CacheKey]struct{} // case prefix -> keys being built
	invalidated map[string]time.Time                    // case prefix -> last invalidation
}

// NewManager wires the tier chain in lookup order (warmest first).
func NewManager(tiers []ports.CacheTier, cfg config.Cache, collector *observability.Collector, logger *zap.Logger) *Manager {
	memoryTTL := cfg.MemoryTTL
	if memoryTTL <= 0 {
		memoryTTL = defaultMemoryTTL
	}
	activeTTL := cfg.ActiveCaseTTL
	if activeTTL <= 0 {
		activeTTL = defaultActiveCaseTTL
	}
	closedTTL := cfg.ClosedCaseTTL
	if closedTTL <= 0 {
		closedTTL = defaultClosedCaseTTL
	}

	return &Manager{
		tiers:       tiers,
		memoryTTL:   memoryTTL,
		activeTTL:   activeTTL,
		closedTTL:   closedTTL,
		logger:      logger,
		collector:   collector,
		inFlight:    make(map[string]map[domain.CacheKey]struct{}),
		invalidated: make(map[string]time.Time),
	}
}

// GetOrBuild serves the record from the warmest tier that has it, or runs
// build under single-flight. The caller whose build function executed gets
// the record with Cached=false; everyone else gets a copy with Cached=true.
func (m *Manager) GetOrBuild(ctx context.Context, key domain.CaseKey, dims []domain.DimensionName, build BuildFunc) (*domain.ContextRecord, error) {
	if len(dims) == 0 {
		return nil, apperrors.NewValidation("dimension set must be resolved before cache lookup")
	}
	cacheKey := domain.NewCacheKey(key, dims)

	if record := m.lookup(ctx, cacheKey); record != nil {
		return record, nil
	}

	return m.buildShared(ctx, key, cacheKey, build)
}

// Rebuild skips the lookup and forces a fresh build, still under
// single-flight so concurrent rebuilds of one key collapse into one.
func (m *Manager) Rebuild(ctx context.Context, key domain.CaseKey, dims []domain.DimensionName, build BuildFunc) (*domain.ContextRecord, error) {
	if len(dims) == 0 {
		return nil, apperrors.NewValidation("dimension set must be resolved before cache rebuild")
	}
	cacheKey := domain.NewCacheKey(key, dims)
	return m.buildShared(ctx, key, cacheKey, build)
}

// lookup walks the tier chain and promotes colder hits into warmer tiers.
// A hit always returns a copy flagged Cached=true; the stored record keeps
// Cached=false.
func (m *Manager) lookup(ctx context.Context, cacheKey domain.CacheKey) *domain.ContextRecord {
	for i, tier := range m.tiers {
		entry, ok := tier.Get(ctx, cacheKey)
		if !ok {
			m.collector.CacheMisses.WithLabelValues(tier.Name()).Inc()
			continue
		}
		m.collector.CacheHits.WithLabelValues(tier.Name()).Inc()

		for j := 0; j < i; j++ {
			m.promote(ctx, m.tiers[j], cacheKey, entry)
		}

		record := entry.Record.Clone()
		record.Cached = true
		return record
	}
	return nil
}

// promote copies a colder entry into a warmer tier. The promoted entry keeps
// the original expiry unless the warmer tier's policy would expire sooner.
func (m *Manager) promote(ctx context.Context, tier ports.CacheTier, cacheKey domain.CacheKey, entry *domain.CacheEntry) {
	now := time.Now()
	expiresAt := entry.ExpiresAt
	if capped := now.Add(m.ttlFor(tier.Name(), entry.CaseStatusAtInsert)); capped.Before(expiresAt) {
		expiresAt = capped
	}

	promoted := *entry
	promoted.ExpiresAt = expiresAt
	tier.Put(ctx, cacheKey, &promoted)
	m.collector.CacheStores.WithLabelValues(tier.Name()).Inc()
}

// buildShared runs build under single-flight for the cache key.
func (m *Manager) buildShared(ctx context.Context, key domain.CaseKey, cacheKey domain.CacheKey, build BuildFunc) (*domain.ContextRecord, error) {
	var leader bool

	ch := m.flight.DoChan(string(cacheKey), func() (any, error) {
		leader = true
		m.trackFlight(key, cacheKey, true)
		defer m.trackFlight(key, cacheKey, false)

		buildStart := time.Now()
		record, err := build(ctx)
		if err != nil {
			return nil, err
		}

		m.storeIfFresh(ctx, key, cacheKey, buildStart, record)
		return record, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			if !leader && (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) {
				// The build owner went away; this caller's own context is
				// still live, so report the shared build as cancelled.
				return nil, apperrors.NewBuildCancelled("context build cancelled")
			}
			return nil, res.Err
		}

		record := res.Val.(*domain.ContextRecord)
		if leader {
			return record, nil
		}

		m.collector.FlightFollowers.Inc()
		shared := record.Clone()
		shared.Cached = true
		return shared, nil

	case <-ctx.Done():
		// Followers abandoning the wait do not cancel the build.
		return nil, ctx.Err()
	}
}

// storeIfFresh writes the record through all tiers unless the case was
// invalidated after the build started. Dropped stores still leave the record
// with its callers.
func (m *Manager) storeIfFresh(ctx context.Context, key domain.CaseKey, cacheKey domain.CacheKey, buildStart time.Time, record *domain.ContextRecord) {
	prefix := domain.CasePrefix(key)

	m.mu.Lock()
	marker, invalidated := m.invalidated[prefix]
	m.mu.Unlock()

	if invalidated && !buildStart.After(marker) {
		m.collector.CacheDroppedStores.Inc()
		m.logger.Debug("dropping build result invalidated mid-flight",
			zap.String("case", key.String()),
			zap.String("cache_key", string(cacheKey)),
		)
		return
	}

	// The cached copy is independent of the one handed to callers.
	stored := record.Clone()
	now := time.Now()
	for _, tier := range m.tiers {
		entry := &domain.CacheEntry{
			Key:                cacheKey,
			Record:             stored,
			InsertedAt:         now,
			ExpiresAt:          now.Add(m.ttlFor(tier.Name(), record.CaseStatus)),
			CaseStatusAtInsert: record.CaseStatus,
		}
		tier.Put(ctx, cacheKey, entry)
		m.collector.CacheStores.WithLabelValues(tier.Name()).Inc()
	}
}

// ttlFor picks the tier TTL: the memory tier uses one TTL regardless of case
// status; persistent tiers hold closed cases longer since they no longer
// change.
func (m *Manager) ttlFor(tierName string, status domain.CaseStatus) time.Duration {
	m.ttlMu.RLock()
	defer m.ttlMu.RUnlock()

	if tierName == "memory" {
		return m.memoryTTL
	}
	if status == domain.CaseStatusClosed {
		return m.closedTTL
	}
	return m.activeTTL
}

// ApplyTTLs swaps the TTL policy, typically from a configuration reload.
// Entries already stored keep their original expiry; new stores and
// promotions use the updated policy. Non-positive values are ignored.
func (m *Manager) ApplyTTLs(cfg config.Cache) {
	m.ttlMu.Lock()
	defer m.ttlMu.Unlock()

	if cfg.MemoryTTL > 0 {
		m.memoryTTL = cfg.MemoryTTL
	}
	if cfg.ActiveCaseTTL > 0 {
		m.activeTTL = cfg.ActiveCaseTTL
	}
	if cfg.ClosedCaseTTL > 0 {
		m.closedTTL = cfg.ClosedCaseTTL
	}
}

// trackFlight maintains the per-case index of in-flight builds.
func (m *Manager) trackFlight(key domain.CaseKey, cacheKey domain.CacheKey, active bool) {
	prefix := domain.CasePrefix(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if active {
		if m.inFlight[prefix] == nil {
			m.inFlight[prefix] = make(map[domain.CacheKey]struct{})
		}
		m.inFlight[prefix][cacheKey] = struct{}{}
		return
	}

	delete(m.inFlight[prefix], cacheKey)
	if len(m.inFlight[prefix]) == 0 {
		delete(m.inFlight, prefix)
	}
}

// Invalidate removes one cached dimension set for a case. The invalidation
// marker still covers the whole case: any build already in flight when the
// invalidation lands will not be stored.
func (m *Manager) Invalidate(ctx context.Context, key domain.CaseKey, dims []domain.DimensionName) (int, error) {
	if len(dims) == 0 {
		return m.InvalidateCase(ctx, key)
	}
	cacheKey := domain.NewCacheKey(key, dims)

	m.mu.Lock()
	m.invalidated[domain.CasePrefix(key)] = time.Now()
	m.mu.Unlock()

	m.flight.Forget(string(cacheKey))

	removed := 0
	for _, tier := range m.tiers {
		removed += tier.Delete(ctx, cacheKey)
	}

	m.collector.CacheInvalidations.Inc()
	m.logger.Info("cache key invalidated",
		zap.String("case", key.String()),
		zap.String("cache_key", string(cacheKey)),
		zap.Int("removed", removed),
	)
	return removed, nil
}

// InvalidateCase removes every cached dimension set for the case, records the
// invalidation instant, and forgets in-flight builds so subsequent callers
// start fresh ones.
func (m *Manager) InvalidateCase(ctx context.Context, key domain.CaseKey) (int, error) {
	prefix := domain.CasePrefix(key)

	m.mu.Lock()
	m.invalidated[prefix] = time.Now()
	inflight := make([]domain.CacheKey, 0, len(m.inFlight[prefix]))
	for k := range m.inFlight[prefix] {
		inflight = append(inflight, k)
	}
	m.mu.Unlock()

	for _, k := range inflight {
		m.flight.Forget(string(k))
	}

	removed := 0
	for _, tier := range m.tiers {
		removed += tier.DeletePrefix(ctx, prefix)
	}

	m.collector.CacheInvalidations.Inc()
	m.logger.Info("case cache invalidated",
		zap.String("case", key.String()),
		zap.Int("removed", removed),
		zap.Int("forgotten_builds", len(inflight)),
	)
	return removed, nil
}

// ManagerStats aggregates tier counters with single-flight state.
type ManagerStats struct {
	Tiers    map[string]ports.TierStats `json:"tiers"`
	HitRate  float64                    `json:"hit_rate"`
	InFlight int                        `json:"in_flight"`
}

// Stats snapshots the chain.
func (m *Manager) Stats() ManagerStats {
	stats := ManagerStats{Tiers: make(map[string]ports.TierStats, len(m.tiers))}

	var hits, misses int64
	for _, tier := range m.tiers {
		ts := tier.Stats()
		stats.Tiers[tier.Name()] = ts
		hits += ts.Hits
		misses += ts.Misses
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}

	m.mu.Lock()
	for _, keys := range m.inFlight {
		stats.InFlight += len(keys)
	}
	m.mu.Unlock()

	return stats
}
