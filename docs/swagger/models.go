package docs

import "time"

// RetrieveContextRequest represents the request payload for assembling case context
// @Description Request body for retrieving a case-scoped context record
type RetrieveContextRequest struct {
	// Tenant identifier (required)
	// @example "client-acme"
	ClientID string `json:"client_id" binding:"required" example:"client-acme"`

	// Case identifier within the tenant (required)
	// @example "case-2024-001"
	CaseID string `json:"case_id" binding:"required" example:"case-2024-001"`

	// Requested scope; defaults to standard
	// @example "standard"
	Scope string `json:"scope,omitempty" example:"standard" enums:"minimal,standard,comprehensive"`

	// Explicit dimension subset; overrides scope when non-empty
	// @example ["WHO", "WHERE"]
	IncludeDimensions []string `json:"include_dimensions,omitempty" example:"WHO,WHERE"`

	// Whether cached records may be served; defaults to true
	// @example true
	UseCache *bool `json:"use_cache,omitempty" example:"true"`
}

// RetrieveDimensionRequest represents the request for a single dimension
type RetrieveDimensionRequest struct {
	// Tenant identifier (required)
	ClientID string `json:"client_id" binding:"required" example:"client-acme"`

	// Case identifier (required)
	CaseID string `json:"case_id" binding:"required" example:"case-2024-001"`

	// Dimension name, case-insensitive (required)
	// @example "WHO"
	Dimension string `json:"dimension" binding:"required" example:"WHO" enums:"WHO,WHAT,WHERE,WHEN,WHY"`
}

// RefreshContextRequest represents the request to rebuild a cached context
type RefreshContextRequest struct {
	// Tenant identifier (required)
	ClientID string `json:"client_id" binding:"required" example:"client-acme"`

	// Case identifier (required)
	CaseID string `json:"case_id" binding:"required" example:"case-2024-001"`

	// Scope to rebuild; defaults to standard
	Scope string `json:"scope,omitempty" example:"standard" enums:"minimal,standard,comprehensive"`
}

// DimensionPayload represents one assembled dimension with its quality scores
// @Description Analyzer output for a single dimension
type DimensionPayload struct {
	// Dimension-specific data keyed by stable snake_case names
	Data map[string]interface{} `json:"data"`

	// Weighted completeness in [0,1]
	// @example 0.85
	Completeness float64 `json:"completeness" example:"0.85"`

	// Mean source confidence in [0,1]
	// @example 0.92
	Confidence float64 `json:"confidence" example:"0.92"`

	// Number of data points backing the dimension
	// @example 14
	DataPoints int `json:"data_points" example:"14"`

	// Whether completeness meets the 0.85 sufficiency threshold
	// @example true
	Sufficient bool `json:"sufficient" example:"true"`
}

// ContextResponse represents a fully assembled context record
// @Description Context envelope; dimensions outside the effective set and failed dimensions are null
type ContextResponse struct {
	// Unique identifier for this response
	// @example "550e8400-e29b-41d4-a716-446655440000"
	QueryID string `json:"query_id" example:"550e8400-e29b-41d4-a716-446655440000"`

	// Case identifier
	CaseID string `json:"case_id" example:"case-2024-001"`

	// Case name from the case store, when known
	CaseName string `json:"case_name,omitempty" example:"Acme Corp v. Bolt LLC"`

	// Parties, counsel, judge, witnesses, and their relationships
	Who *DimensionPayload `json:"who"`

	// Legal issues, causes of action, citations, and the primary theory
	What *DimensionPayload `json:"what"`

	// Jurisdiction, court, and venue
	Where *DimensionPayload `json:"where"`

	// Timeline, deadlines, and urgency
	When *DimensionPayload `json:"when"`

	// Theories, precedents, risks, and strategic context
	Why *DimensionPayload `json:"why"`

	// Overall quality score in [0,1]
	// @example 0.91
	ContextScore float64 `json:"context_score" example:"0.91"`

	// Whether the score meets the completeness threshold
	// @example true
	IsComplete bool `json:"is_complete" example:"true"`

	// Whether this record was served from cache
	// @example false
	Cached bool `json:"cached" example:"false"`

	// Wall time of the retrieval in milliseconds
	// @example 412
	ExecutionTimeMS int64 `json:"execution_time_ms" example:"412"`

	// Response timestamp (UTC)
	Timestamp time.Time `json:"timestamp" example:"2026-08-24T10:30:00Z"`

	// Failure reasons keyed by dimension, present only when dimensions failed
	// @example {"WHY": "graph service unavailable"}
	Errors map[string]string `json:"errors,omitempty"`
}

// DimensionResponse represents a single-dimension retrieval result
type DimensionResponse struct {
	// Case identifier
	CaseID string `json:"case_id" example:"case-2024-001"`

	// Dimension name in canonical form
	Dimension string `json:"dimension" example:"WHO"`

	// The assembled dimension
	Data *DimensionPayload `json:"data"`
}

// ErrorResponse represents the wire shape of every error
// @Description Error body with a human-readable detail and a machine-readable code
type ErrorResponse struct {
	// Human-readable error description
	// @example "case case-2024-001 not found"
	Detail string `json:"detail" example:"case case-2024-001 not found"`

	// Machine-readable error code
	// @example "CASE_NOT_FOUND"
	ErrorCode string `json:"error_code,omitempty" example:"CASE_NOT_FOUND"`

	// Case the error concerns, when known
	CaseID string `json:"case_id,omitempty" example:"case-2024-001"`
}
