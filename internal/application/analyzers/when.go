package analyzers

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"context-engine/internal/domain"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

// Urgency weighting. Proximity of the next deadline dominates, overdue work
// comes second, case age and deadline density split the remainder.
const (
	urgencyProximityWeight = 0.40
	urgencyOverdueWeight   = 0.30
	urgencyAgeWeight       = 0.15
	urgencyDensityWeight   = 0.15
)

// WhenAnalyzer assembles the timeline of a case: filing date, chronology,
// open deadlines, and an urgency score. Events come from the case store and
// are required; the filing date rides on metadata and degrades quietly when
// the metadata read fails for anything other than a missing case.
type WhenAnalyzer struct {
	store  ports.CaseStore
	logger *zap.Logger
	now    func() time.Time
}

// NewWhenAnalyzer creates the WHEN analyzer.
func NewWhenAnalyzer(store ports.CaseStore, logger *zap.Logger) *WhenAnalyzer {
	return &WhenAnalyzer{store: store, logger: logger.Named("when"), now: time.Now}
}

// Dimension implements Analyzer.
func (a *WhenAnalyzer) Dimension() domain.DimensionName { return domain.DimensionWhen }

// Analyze implements Analyzer.
func (a *WhenAnalyzer) Analyze(ctx context.Context, key domain.CaseKey) (*domain.DimensionResult, error) {
	var filingDate *time.Time
	meta, err := a.store.GetCaseMetadata(ctx, key)
	switch {
	case err == nil:
		filingDate = meta.FilingDate
	case apperrors.IsNotFound(err):
		return nil, err
	default:
		a.logger.Warn("metadata read failed, timeline proceeds without filing date",
			zap.String("case", key.String()), zap.Error(err))
	}

	events, err := a.store.ListEvents(ctx, key, nil, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.Before(events[j].Date)
	})

	now := a.now()
	deadlines := make([]domain.CaseEvent, 0)
	overdue := 0
	upcoming30 := 0
	var next *domain.CaseEvent
	for i := range events {
		e := events[i]
		if !e.Deadline || e.Completed {
			continue
		}
		deadlines = append(deadlines, e)
		if e.Date.Before(now) {
			overdue++
			continue
		}
		if next == nil {
			next = &e
		}
		if e.Date.Sub(now) <= 30*24*time.Hour {
			upcoming30++
		}
	}

	var completeness float64
	if filingDate != nil {
		completeness += 0.30
	}
	completeness += scaled(len(events), 10) * 0.30
	completeness += scaled(len(deadlines), 5) * 0.40

	urgency := a.urgency(now, filingDate, next, overdue, upcoming30)

	data := map[string]any{
		"filing_date":   filingDate,
		"timeline":      events,
		"deadlines":     deadlines,
		"next_deadline": next,
		"event_count":   len(events),
		"overdue_count": overdue,
		"urgency_score": urgency,
	}

	dataPoints := len(events)
	if filingDate != nil {
		dataPoints++
	}

	// Everything here is a store row, not an extraction; coverage stands in
	// for confidence.
	return newResult(data, completeness, completeness, dataPoints), nil
}

// urgency blends deadline proximity, overdue load, case age, and near-term
// deadline density into a 0..1 score.
func (a *WhenAnalyzer) urgency(now time.Time, filingDate *time.Time, next *domain.CaseEvent, overdue, upcoming30 int) float64 {
	proximity := 0.0
	if next != nil {
		days := next.Date.Sub(now).Hours() / 24
		if days < 0 {
			days = 0
		}
		if days > 30 {
			days = 30
		}
		proximity = 1 - days/30
	}

	overdueScore := scaled(overdue, 5)

	age := 0.0
	if filingDate != nil {
		ageDays := now.Sub(*filingDate).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		if ageDays > 365 {
			ageDays = 365
		}
		age = ageDays / 365
	}

	density := scaled(upcoming30, 5)

	return clamp01(urgencyProximityWeight*proximity +
		urgencyOverdueWeight*overdueScore +
		urgencyAgeWeight*age +
		urgencyDensityWeight*density)
}
