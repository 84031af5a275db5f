package domain

import (
	"strings"
	"time"
)

// CompletenessThreshold gates both per-dimension sufficiency and overall
// record completeness.
const CompletenessThreshold = 0.85

// CaseStatus reflects the case lifecycle state resolved from the case store.
type CaseStatus string

const (
	CaseStatusActive  CaseStatus = "active"
	CaseStatusClosed  CaseStatus = "closed"
	CaseStatusUnknown CaseStatus = "unknown"
)

// ParseCaseStatus maps a stored status string onto the known states; anything
// unrecognized degrades to unknown rather than failing a build.
func ParseCaseStatus(s string) CaseStatus {
	switch CaseStatus(strings.ToLower(strings.TrimSpace(s))) {
	case CaseStatusActive:
		return CaseStatusActive
	case CaseStatusClosed:
		return CaseStatusClosed
	default:
		return CaseStatusUnknown
	}
}

// DimensionResult is an analyzer's output: an opaque payload plus the scalar
// quality fields interpreted by the scorer.
type DimensionResult struct {
	Data         map[string]any `json:"data"`
	Completeness float64        `json:"completeness"`
	Confidence   float64        `json:"confidence"`
	DataPoints   int            `json:"data_points"`
	Sufficient   bool           `json:"sufficient"`
}

// DimensionEntry records the outcome for one requested dimension: present
// with a result, or failed with a reason. Dimensions outside the effective
// set have no entry at all.
type DimensionEntry struct {
	Result        *DimensionResult `json:"result,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

// Failed reports whether the dimension build failed.
func (e *DimensionEntry) Failed() bool {
	return e.Result == nil
}

// ContextRecord is the composite output of one build.
type ContextRecord struct {
	CaseKey        CaseKey                           `json:"case_key"`
	ScopeRequested Scope                             `json:"scope_requested"`
	Dimensions     map[DimensionName]*DimensionEntry `json:"dimensions"`
	ContextScore   float64                           `json:"context_score"`
	IsComplete     bool                              `json:"is_complete"`
	BuiltAt        time.Time                         `json:"built_at"`
	Cached         bool                              `json:"cached"`
	BuildLatency   time.Duration                     `json:"build_latency"`
	CaseName       string                            `json:"case_name,omitempty"`
	CaseStatus     CaseStatus                        `json:"case_status"`
}

// RequestedDimensions lists the record's dimension keys in canonical order.
func (r *ContextRecord) RequestedDimensions() []DimensionName {
	out := make([]DimensionName, 0, len(r.Dimensions))
	for _, dim := range CanonicalDimensionOrder {
		if _, ok := r.Dimensions[dim]; ok {
			out = append(out, dim)
		}
	}
	return out
}

// FailureReasons collects failed dimensions and their reasons; empty when the
// build was fully successful.
func (r *ContextRecord) FailureReasons() map[DimensionName]string {
	out := make(map[DimensionName]string)
	for dim, entry := range r.Dimensions {
		if entry.Failed() {
			out[dim] = entry.FailureReason
		}
	}
	return out
}

// Clone returns a copy safe to hand to a different caller. Entries are
// immutable after a build, so they are shared; the map and scalar fields are
// copied so flags like Cached can diverge per caller.
func (r *ContextRecord) Clone() *ContextRecord {
	clone := *r
	clone.Dimensions = make(map[DimensionName]*DimensionEntry, len(r.Dimensions))
	for dim, entry := range r.Dimensions {
		clone.Dimensions[dim] = entry
	}
	return &clone
}
