package dto

import (
	"time"

	"github.com/google/uuid"

	"context-engine/internal/domain"
)

// ContextEnvelope is the five-dimensional response for one case. Dimensions
// outside the effective set and failed dimensions are null; failures are
// additionally listed in Errors.
type ContextEnvelope struct {
	QueryID         string                  `json:"query_id"`
	CaseID          string                  `json:"case_id"`
	CaseName        string                  `json:"case_name,omitempty"`
	Who             *domain.DimensionResult `json:"who"`
	What            *domain.DimensionResult `json:"what"`
	Where           *domain.DimensionResult `json:"where"`
	When            *domain.DimensionResult `json:"when"`
	Why             *domain.DimensionResult `json:"why"`
	ContextScore    float64                 `json:"context_score"`
	IsComplete      bool                    `json:"is_complete"`
	Cached          bool                    `json:"cached"`
	ExecutionTimeMS int64                   `json:"execution_time_ms"`
	Timestamp       time.Time               `json:"timestamp"`
	Errors          map[string]string       `json:"errors,omitempty"`
}

// NewContextEnvelope shapes a context record for the wire. elapsed is the
// wall time of the service call as observed by the handler.
func NewContextEnvelope(record *domain.ContextRecord, elapsed time.Duration) *ContextEnvelope {
	env := &ContextEnvelope{
		QueryID:         uuid.NewString(),
		CaseID:          record.CaseKey.CaseID,
		CaseName:        record.CaseName,
		Who:             dimensionOf(record, domain.DimensionWho),
		What:            dimensionOf(record, domain.DimensionWhat),
		Where:           dimensionOf(record, domain.DimensionWhere),
		When:            dimensionOf(record, domain.DimensionWhen),
		Why:             dimensionOf(record, domain.DimensionWhy),
		ContextScore:    record.ContextScore,
		IsComplete:      record.IsComplete,
		Cached:          record.Cached,
		ExecutionTimeMS: elapsed.Milliseconds(),
		Timestamp:       time.Now().UTC(),
	}

	if reasons := record.FailureReasons(); len(reasons) > 0 {
		env.Errors = make(map[string]string, len(reasons))
		for dim, reason := range reasons {
			env.Errors[string(dim)] = reason
		}
	}
	return env
}

func dimensionOf(record *domain.ContextRecord, dim domain.DimensionName) *domain.DimensionResult {
	entry, ok := record.Dimensions[dim]
	if !ok || entry == nil {
		return nil
	}
	return entry.Result
}

// DimensionEnvelope is the response for a single-dimension retrieval.
type DimensionEnvelope struct {
	CaseID    string                  `json:"case_id"`
	Dimension string                  `json:"dimension"`
	Data      *domain.DimensionResult `json:"data"`
}

// BatchEnvelope summarizes a batch retrieval. Contexts holds the successful
// cases in request order; Errors maps failed case IDs to reasons.
type BatchEnvelope struct {
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Contexts   []*ContextEnvelope `json:"contexts"`
	Errors     map[string]string  `json:"errors,omitempty"`
}

// InvalidateResponse reports how many cached entries an invalidation removed.
type InvalidateResponse struct {
	Removed int `json:"removed"`
}

// WarmupResponse reports the outcome of a cache warmup.
type WarmupResponse struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
