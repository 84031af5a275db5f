// Package cache implements the context cache: a bounded in-memory LRU tier,
// no-op stand-ins for the distributed and persistent slots, and the manager
// that composes tiers with single-flight builds and invalidation.
package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
)

const defaultCapacity = 1000

// MemoryTier is a thread-safe LRU tier with per-entry absolute TTLs.
// Expired entries are purged lazily on access and by the background sweep.
type MemoryTier struct {
	mu       sync.RWMutex
	items    map[domain.CacheKey]*memoryItem
	lru      *list.List
	capacity int

	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64

	logger *zap.Logger
}

type memoryItem struct {
	key     domain.CacheKey
	entry   *domain.CacheEntry
	element *list.Element
}

// NewMemoryTier creates the tier with the given capacity.
func NewMemoryTier(capacity int, logger *zap.Logger) *MemoryTier {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryTier{
		items:    make(map[domain.CacheKey]*memoryItem),
		lru:      list.New(),
		capacity: capacity,
		logger:   logger,
	}
}

// Name implements ports.CacheTier.
func (t *MemoryTier) Name() string { return "memory" }

// Get returns a live entry, purging it first if its TTL has passed.
func (t *MemoryTier) Get(_ context.Context, key domain.CacheKey) (*domain.CacheEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[key]
	if !ok {
		t.misses++
		return nil, false
	}
	if item.entry.Expired(time.Now()) {
		t.removeItem(item)
		t.misses++
		return nil, false
	}

	t.lru.MoveToFront(item.element)
	item.entry.AccessCount++
	t.hits++
	return item.entry, true
}

// Put atomically replaces the entry for the key, evicting from the cold end
// when the tier is full.
func (t *MemoryTier) Put(_ context.Context, key domain.CacheKey, entry *domain.CacheEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.items[key]; ok {
		t.removeItem(existing)
	}

	for len(t.items) >= t.capacity && t.lru.Len() > 0 {
		oldest := t.lru.Back()
		t.removeItem(oldest.Value.(*memoryItem))
		t.evictions++
	}

	item := &memoryItem{key: key, entry: entry}
	item.element = t.lru.PushFront(item)
	t.items[key] = item
	t.sets++
}

// Delete removes the key, reporting how many entries were removed.
func (t *MemoryTier) Delete(_ context.Context, key domain.CacheKey) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[key]
	if !ok {
		return 0
	}
	t.removeItem(item)
	t.deletes++
	return 1
}

// DeletePrefix removes every entry whose key starts with prefix.
func (t *MemoryTier) DeletePrefix(_ context.Context, prefix string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	toRemove := make([]*memoryItem, 0)
	for key, item := range t.items {
		if strings.HasPrefix(string(key), prefix) {
			toRemove = append(toRemove, item)
		}
	}
	for _, item := range toRemove {
		t.removeItem(item)
	}

	t.deletes += int64(len(toRemove))
	if len(toRemove) > 0 {
		t.logger.Debug("removed cache entries by prefix",
			zap.String("prefix", prefix),
			zap.Int("count", len(toRemove)),
		)
	}
	return len(toRemove)
}

// Stats snapshots the tier's counters.
func (t *MemoryTier) Stats() ports.TierStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return ports.TierStats{
		Hits:      t.hits,
		Misses:    t.misses,
		Sets:      t.sets,
		Deletes:   t.deletes,
		Evictions: t.evictions,
		Size:      len(t.items),
		Capacity:  t.capacity,
	}
}

// removeItem unlinks an item; callers must hold the lock.
func (t *MemoryTier) removeItem(item *memoryItem) {
	if item.element != nil {
		t.lru.Remove(item.element)
	}
	delete(t.items, item.key)
}

// StartCleanup runs a background sweep for expired entries every interval.
// The returned function stops the sweep.
func (t *MemoryTier) StartCleanup(interval time.Duration) func() {
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				t.sweepExpired()
			case <-stop:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(stop) })
	}
}

func (t *MemoryTier) sweepExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	toRemove := make([]*memoryItem, 0)
	for _, item := range t.items {
		if item.entry.Expired(now) {
			toRemove = append(toRemove, item)
		}
	}
	for _, item := range toRemove {
		t.removeItem(item)
	}

	if len(toRemove) > 0 {
		t.logger.Debug("swept expired cache entries", zap.Int("count", len(toRemove)))
	}
}
