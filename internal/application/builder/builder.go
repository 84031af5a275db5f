// Package builder assembles context records: it prefetches case metadata,
// fans the requested dimension analyzers out across bounded goroutines, and
// folds their results into a quality-scored ContextRecord. Partial failure
// is a normal outcome; the builder errors only on invalid input or an
// unknown case.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"context-engine/internal/application/analyzers"
	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/observability"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

// Build outcome labels for metrics.
const (
	outcomeComplete = "complete"
	outcomePartial  = "partial"
	outcomeError    = "error"
)

// Builder runs the dimension fan-out for one case at a time. It is stateless
// and safe for concurrent use.
type Builder struct {
	registry analyzers.Registry
	store    ports.CaseStore
	cfg      config.Build
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewBuilder creates a builder over the given analyzer registry.
func NewBuilder(registry analyzers.Registry, store ports.CaseStore, cfg config.Build, metrics *observability.Collector, logger *zap.Logger) *Builder {
	return &Builder{
		registry: registry,
		store:    store,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.Named("builder"),
	}
}

// Build assembles a context record for the given dimension set. Failed
// dimensions are recorded on the record rather than failing the build; the
// returned error is reserved for invalid input and unknown cases.
func (b *Builder) Build(ctx context.Context, key domain.CaseKey, scope domain.Scope, dims []domain.DimensionName) (*domain.ContextRecord, error) {
	start := time.Now()

	dims, err := b.normalizeDims(dims)
	if err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	name, status, err := b.prefetchMetadata(ctx, key)
	if err != nil {
		b.metrics.BuildsTotal.WithLabelValues(outcomeError).Inc()
		return nil, err
	}

	entries := b.fanOut(ctx, key, dims)

	var sum float64
	successful := 0
	for _, dim := range dims {
		entry := entries[dim]
		if entry.Failed() {
			continue
		}
		sum += entry.Result.Completeness
		successful++
	}
	n := float64(len(dims))
	score := clamp01((sum / n) * (float64(successful) / n))

	record := &domain.ContextRecord{
		CaseKey:        key,
		ScopeRequested: scope,
		Dimensions:     entries,
		ContextScore:   score,
		IsComplete:     score >= domain.CompletenessThreshold,
		BuiltAt:        time.Now().UTC(),
		Cached:         false,
		BuildLatency:   time.Since(start),
		CaseName:       name,
		CaseStatus:     status,
	}

	outcome := outcomeComplete
	if successful < len(dims) {
		outcome = outcomePartial
	}
	b.metrics.BuildsTotal.WithLabelValues(outcome).Inc()
	b.metrics.BuildDuration.Observe(record.BuildLatency.Seconds())
	b.metrics.ContextScore.Observe(score)

	b.logger.Info("context build finished",
		zap.String("case", key.String()),
		zap.Int("dimensions", len(dims)),
		zap.Int("successful", successful),
		zap.Float64("score", score),
		zap.Bool("complete", record.IsComplete),
		zap.Duration("latency", record.BuildLatency))

	return record, nil
}

// BuildDimension runs a single analyzer outside the fan-out, for callers that
// want one dimension without assembling a record. The case must exist.
func (b *Builder) BuildDimension(ctx context.Context, key domain.CaseKey, dim domain.DimensionName) (*domain.DimensionResult, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	analyzer, ok := b.registry[dim]
	if !ok {
		return nil, apperrors.NewValidation(fmt.Sprintf("unknown dimension %q", dim))
	}

	metaCtx, cancel := context.WithTimeout(ctx, b.cfg.MetadataTimeout)
	_, err := b.store.GetCaseMetadata(metaCtx, key)
	cancel()
	if err != nil && apperrors.IsNotFound(err) {
		return nil, err
	}

	result, err := analyzer.Analyze(ctx, key)
	if err != nil {
		b.metrics.DimensionFailures.WithLabelValues(string(dim), failureClass(err)).Inc()
		return nil, err
	}
	return result, nil
}

// prefetchMetadata resolves case name and status under the metadata budget.
// An unknown case stops the build; any other store trouble degrades the
// status to unknown and the build proceeds.
func (b *Builder) prefetchMetadata(ctx context.Context, key domain.CaseKey) (string, domain.CaseStatus, error) {
	metaCtx, cancel := context.WithTimeout(ctx, b.cfg.MetadataTimeout)
	defer cancel()

	meta, err := b.store.GetCaseMetadata(metaCtx, key)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", "", err
		}
		b.logger.Warn("metadata prefetch failed, proceeding with unknown status",
			zap.String("case", key.String()), zap.Error(err))
		return "", domain.CaseStatusUnknown, nil
	}

	status := meta.Status
	if status == "" {
		status = domain.CaseStatusUnknown
	}
	return meta.Name, status, nil
}

// fanOut runs the analyzers concurrently under a semaphore and a shared
// sub-deadline that reserves the scoring budget. A failing analyzer never
// cancels its siblings; its entry records the failure reason instead.
func (b *Builder) fanOut(ctx context.Context, key domain.CaseKey, dims []domain.DimensionName) map[domain.DimensionName]*domain.DimensionEntry {
	analysisCtx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		reserved := deadline.Add(-b.cfg.ScoringBudget)
		if reserved.After(time.Now()) {
			var cancel context.CancelFunc
			analysisCtx, cancel = context.WithDeadline(ctx, reserved)
			defer cancel()
		}
	}

	parallel := b.cfg.MaxParallelDimensions
	if parallel <= 0 {
		parallel = len(dims)
	}
	sem := make(chan struct{}, parallel)

	var wg sync.WaitGroup
	var mu sync.Mutex
	entries := make(map[domain.DimensionName]*domain.DimensionEntry, len(dims))

	record := func(dim domain.DimensionName, entry *domain.DimensionEntry) {
		mu.Lock()
		entries[dim] = entry
		mu.Unlock()
	}

	for _, dim := range dims {
		analyzer := b.registry[dim]
		wg.Add(1)
		go func(dim domain.DimensionName, analyzer analyzers.Analyzer) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-analysisCtx.Done():
				// Never got a slot before the budget ran out.
				record(dim, &domain.DimensionEntry{FailureReason: failureReason(analysisCtx.Err())})
				b.metrics.DimensionFailures.WithLabelValues(string(dim), failureClass(analysisCtx.Err())).Inc()
				return
			}

			began := time.Now()
			result, err := analyzer.Analyze(analysisCtx, key)
			if err != nil {
				reason := failureReason(err)
				record(dim, &domain.DimensionEntry{FailureReason: reason})
				b.metrics.DimensionFailures.WithLabelValues(string(dim), failureClass(err)).Inc()
				b.logger.Warn("dimension analysis failed",
					zap.String("case", key.String()),
					zap.String("dimension", string(dim)),
					zap.String("reason", reason),
					zap.Duration("elapsed", time.Since(began)))
				return
			}
			record(dim, &domain.DimensionEntry{Result: result})
		}(dim, analyzer)
	}
	wg.Wait()

	return entries
}

// normalizeDims validates and deduplicates the requested set, returning it in
// canonical order.
func (b *Builder) normalizeDims(dims []domain.DimensionName) ([]domain.DimensionName, error) {
	if len(dims) == 0 {
		return nil, apperrors.NewValidation(domain.ErrEmptyDimensionSet.Error())
	}

	requested := make(map[domain.DimensionName]bool, len(dims))
	for _, dim := range dims {
		if _, ok := b.registry[dim]; !ok {
			return nil, apperrors.NewValidation(fmt.Sprintf("unknown dimension %q", dim))
		}
		requested[dim] = true
	}

	out := make([]domain.DimensionName, 0, len(requested))
	for _, dim := range domain.CanonicalDimensionOrder {
		if requested[dim] {
			out = append(out, dim)
		}
	}
	return out, nil
}

func validateKey(key domain.CaseKey) error {
	switch err := key.Validate(); {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrEmptyCaseID):
		return apperrors.NewMissingCaseID(err.Error())
	default:
		return apperrors.NewValidation(err.Error())
	}
}

// failureReason renders an analyzer error as the reason string recorded on
// the dimension entry and surfaced in the response envelope.
func failureReason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return err.Error()
}

// failureClass buckets analyzer errors into low-cardinality metric labels.
func failureClass(err error) string {
	switch {
	case apperrors.IsDeadline(err) || errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	case apperrors.IsCancelled(err) || errors.Is(err, context.Canceled):
		return "cancelled"
	case apperrors.IsUnavailable(err):
		return "unavailable"
	case apperrors.IsRejected(err):
		return "rejected"
	case apperrors.IsNotFound(err):
		return "not_found"
	case apperrors.IsValidation(err):
		return "validation"
	default:
		return "internal"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
