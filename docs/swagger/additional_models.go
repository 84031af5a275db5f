package docs

// Additional request/response models for API documentation

// BatchRetrieveRequest represents a batch context retrieval request
type BatchRetrieveRequest struct {
	// Tenant identifier (required)
	// @example "client-acme"
	ClientID string `json:"client_id" binding:"required" example:"client-acme"`

	// Case identifiers, at most 50 (required)
	// @example ["case-2024-001", "case-2024-002"]
	CaseIDs []string `json:"case_ids" binding:"required" example:"case-2024-001,case-2024-002"`

	// Scope applied to every case; defaults to standard
	Scope string `json:"scope,omitempty" example:"standard" enums:"minimal,standard,comprehensive"`

	// Whether cached records may be served; defaults to true
	UseCache *bool `json:"use_cache,omitempty" example:"true"`
}

// BatchContextResponse represents batch retrieval results
type BatchContextResponse struct {
	// Number of requested cases
	// @example 2
	Total int `json:"total" example:"2"`

	// Number of cases that assembled successfully
	// @example 1
	Successful int `json:"successful" example:"1"`

	// Number of cases that failed
	// @example 1
	Failed int `json:"failed" example:"1"`

	// Assembled records in request order, failures omitted
	Contexts []ContextResponse `json:"contexts"`

	// Failure details keyed by case ID
	// @example {"case-2024-002": "case case-2024-002 not found"}
	Errors map[string]string `json:"errors,omitempty"`
}

// WarmupRequest represents a cache pre-population request
type WarmupRequest struct {
	// Tenant identifier (required)
	ClientID string `json:"client_id" binding:"required" example:"client-acme"`

	// Case identifiers to warm, at most 50 (required)
	CaseIDs []string `json:"case_ids" binding:"required" example:"case-2024-001,case-2024-002"`

	// Scope to warm; defaults to standard
	Scope string `json:"scope,omitempty" example:"standard" enums:"minimal,standard,comprehensive"`
}

// WarmupResponse represents cache warmup results
type WarmupResponse struct {
	// Number of cases warmed successfully
	// @example 2
	Successful int `json:"successful" example:"2"`

	// Number of cases that failed to warm
	// @example 0
	Failed int `json:"failed" example:"0"`
}

// InvalidateResponse represents cache invalidation results
type InvalidateResponse struct {
	// Number of cache entries removed across all tiers
	// @example 3
	Removed int `json:"removed" example:"3"`
}

// TierCacheStats represents one cache tier's counters
type TierCacheStats struct {
	// Lookup hits
	Hits int64 `json:"hits" example:"120"`

	// Lookup misses
	Misses int64 `json:"misses" example:"30"`

	// Entries stored
	Sets int64 `json:"sets" example:"31"`

	// Entries deleted
	Deletes int64 `json:"deletes" example:"4"`

	// Entries evicted by capacity pressure
	Evictions int64 `json:"evictions" example:"2"`

	// Current entry count
	Size int `json:"size" example:"25"`

	// Configured capacity
	Capacity int `json:"capacity" example:"1000"`
}

// CacheStatsResponse represents the cache chain snapshot
type CacheStatsResponse struct {
	// Per-tier counters keyed by tier name
	Tiers map[string]TierCacheStats `json:"tiers"`

	// Overall hit rate across tiers in [0,1]
	// @example 0.8
	HitRate float64 `json:"hit_rate" example:"0.8"`

	// Builds currently in flight
	// @example 1
	InFlight int `json:"in_flight" example:"1"`
}

// ComponentStatus represents one dependency's health
type ComponentStatus struct {
	// Component status
	// @example "ok"
	Status string `json:"status" example:"ok" enums:"ok,unavailable"`

	// Probe error when unavailable
	Error string `json:"error,omitempty"`
}

// HealthResponse represents the readiness report
type HealthResponse struct {
	// Overall status; "ok" only when every component is healthy
	// @example "ok"
	Status string `json:"status" example:"ok" enums:"ok,degraded"`

	// Per-component health keyed by component name
	Components map[string]ComponentStatus `json:"components"`
}
