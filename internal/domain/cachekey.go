package domain

import (
	"fmt"
	"hash/fnv"
	"time"
)

// CacheKey identifies one cached context build: a case key plus the
// fingerprint of the effective dimension set. Distinct from CaseKey.
type CacheKey string

// NewCacheKey builds the cache key for a case and dimension set. The scope
// must already be resolved to its dimension set so a cached "standard" build
// serves an equivalent explicit {WHO,WHAT,WHERE,WHEN} request. The dimset
// fingerprint is order-independent.
func NewCacheKey(key CaseKey, dims []DimensionName) CacheKey {
	canonical := CanonicalDimset(dims)
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", key.ClientID, key.CaseID, canonical)
	return CacheKey(fmt.Sprintf("%s%016x", CasePrefix(key), h.Sum64()))
}

// CasePrefix is the shared prefix of every cache key for one case; case-wide
// invalidation deletes by this prefix.
func CasePrefix(key CaseKey) string {
	return fmt.Sprintf("ctx:%s:%s:", key.ClientID, key.CaseID)
}

// CacheEntry wraps a stored record with its freshness bookkeeping.
type CacheEntry struct {
	Key                CacheKey       `json:"key"`
	Record             *ContextRecord `json:"record"`
	InsertedAt         time.Time      `json:"inserted_at"`
	ExpiresAt          time.Time      `json:"expires_at"`
	CaseStatusAtInsert CaseStatus     `json:"case_status_at_insert"`
	AccessCount        int64          `json:"access_count"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
