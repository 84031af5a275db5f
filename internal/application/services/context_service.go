// Package services exposes the context engine's application facade: the
// operations the HTTP layer calls, each one composing the cache manager, the
// builder, and the upstream clients. The facade owns the overall retrieval
// deadline; everything below it inherits the budget through ctx.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"context-engine/internal/application/builder"
	"context-engine/internal/config"
	"context-engine/internal/domain"
	"context-engine/internal/infrastructure/cache"
	"context-engine/internal/observability"
	"context-engine/internal/ports"
	apperrors "context-engine/pkg/errors"
)

// healthProbeTimeout bounds each upstream probe inside Health.
const healthProbeTimeout = 2 * time.Second

// pinger is satisfied by stores that expose pool health (the Postgres store
// and the test double); the narrow CaseStore port deliberately does not.
type pinger interface {
	Ping(ctx context.Context) error
}

// RetrieveRequest carries one retrieval's parameters as the handler parsed
// them. Scope and dimension names arrive raw and are normalized here.
type RetrieveRequest struct {
	Key        domain.CaseKey
	Scope      string
	Dimensions []string
	UseCache   bool
}

// BatchResult is the per-case outcome of a batch retrieval; failures are
// isolated per case.
type BatchResult struct {
	CaseID string
	Record *domain.ContextRecord
	Err    error
}

// ComponentHealth reports one dependency's reachability.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport aggregates dependency health for the health endpoints.
type HealthReport struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
}

// Healthy reports whether every component probe passed.
func (r HealthReport) Healthy() bool { return r.Status == "ok" }

// ContextService is the application facade over the assembly pipeline.
type ContextService struct {
	builder *builder.Builder
	cache   *cache.Manager
	graph   ports.GraphQuerier
	store   ports.CaseStore
	cfg     config.Build
	tracer  *observability.TracerProvider
	logger  *zap.Logger
}

// NewContextService wires the facade.
func NewContextService(
	b *builder.Builder,
	cacheManager *cache.Manager,
	graph ports.GraphQuerier,
	store ports.CaseStore,
	cfg config.Build,
	tracer *observability.TracerProvider,
	logger *zap.Logger,
) *ContextService {
	return &ContextService{
		builder: b,
		cache:   cacheManager,
		graph:   graph,
		store:   store,
		cfg:     cfg,
		tracer:  tracer,
		logger:  logger.Named("context_service"),
	}
}

// Retrieve returns the context record for a case, served from cache when
// possible. With UseCache false the lookup is bypassed but the fresh record
// still replaces the cached one.
func (s *ContextService) Retrieve(ctx context.Context, req RetrieveRequest) (*domain.ContextRecord, error) {
	if err := validateKey(req.Key); err != nil {
		return nil, err
	}
	scope, dims, err := s.resolve(req.Scope, req.Dimensions)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	ctx, span := s.tracer.StartSpan(ctx, "context.retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("case.key", req.Key.String()),
		attribute.String("context.scope", string(scope)),
		attribute.Bool("cache.requested", req.UseCache),
	)

	build := s.buildFunc(req.Key, scope, dims)
	if !req.UseCache {
		return s.cache.Rebuild(ctx, req.Key, dims, build)
	}
	return s.cache.GetOrBuild(ctx, req.Key, dims, build)
}

// RetrieveDimension runs a single analyzer directly, without touching the
// record cache. Returns the normalized dimension name alongside the result.
func (s *ContextService) RetrieveDimension(ctx context.Context, key domain.CaseKey, dimension string) (domain.DimensionName, *domain.DimensionResult, error) {
	if err := validateKey(key); err != nil {
		return "", nil, err
	}
	dim, err := domain.ParseDimension(dimension)
	if err != nil {
		return "", nil, apperrors.NewValidation(fmt.Sprintf("unknown dimension %q", dimension))
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	ctx, span := s.tracer.StartSpan(ctx, "context.retrieve_dimension")
	defer span.End()
	span.SetAttributes(
		attribute.String("case.key", key.String()),
		attribute.String("context.dimension", string(dim)),
	)

	result, err := s.builder.BuildDimension(ctx, key, dim)
	if err != nil {
		return dim, nil, err
	}
	return dim, result, nil
}

// Refresh invalidates the cached entry for the scope and rebuilds it.
func (s *ContextService) Refresh(ctx context.Context, key domain.CaseKey, scope string, dimensions []string) (*domain.ContextRecord, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	parsedScope, dims, err := s.resolve(scope, dimensions)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	ctx, span := s.tracer.StartSpan(ctx, "context.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("case.key", key.String()))

	if _, err := s.cache.Invalidate(ctx, key, dims); err != nil {
		return nil, err
	}
	return s.cache.Rebuild(ctx, key, dims, s.buildFunc(key, parsedScope, dims))
}

// BatchRetrieve assembles contexts for up to MaxBatchSize cases of one
// client on a bounded worker pool. Per-case failures land in the result
// slots; the call errors only on invalid input.
func (s *ContextService) BatchRetrieve(ctx context.Context, clientID string, caseIDs []string, scope string) ([]BatchResult, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, apperrors.NewValidation(domain.ErrEmptyClientID.Error())
	}
	if len(caseIDs) == 0 {
		return nil, apperrors.NewValidation("at least one case id is required")
	}
	if len(caseIDs) > s.cfg.MaxBatchSize {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("batch of %d cases exceeds the maximum of %d", len(caseIDs), s.cfg.MaxBatchSize))
	}
	parsedScope, dims, err := s.resolve(scope, nil)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.StartSpan(ctx, "context.batch_retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("client.id", clientID),
		attribute.Int("batch.size", len(caseIDs)),
	)

	workers := s.cfg.BatchWorkers
	if workers <= 0 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	results := make([]BatchResult, len(caseIDs))
	var wg sync.WaitGroup
	for i, caseID := range caseIDs {
		wg.Add(1)
		go func(i int, caseID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = BatchResult{CaseID: caseID}
			key := domain.CaseKey{ClientID: clientID, CaseID: caseID}
			if err := validateKey(key); err != nil {
				results[i].Err = err
				return
			}

			// Each case gets its own retrieval budget.
			itemCtx, cancel := s.withDeadline(ctx)
			record, err := s.cache.GetOrBuild(itemCtx, key, dims, s.buildFunc(key, parsedScope, dims))
			cancel()
			results[i].Record, results[i].Err = record, err
		}(i, caseID)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.logger.Info("batch retrieval finished",
		zap.String("client_id", clientID),
		zap.Int("total", len(caseIDs)),
		zap.Int("failed", failed))

	return results, nil
}

// Warmup primes the cache for a set of cases and reports how many builds
// succeeded versus failed.
func (s *ContextService) Warmup(ctx context.Context, clientID string, caseIDs []string, scope string) (successful, failed int, err error) {
	results, err := s.BatchRetrieve(ctx, clientID, caseIDs, scope)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		successful++
	}
	return successful, failed, nil
}

// Invalidate removes the cached entry for one scope of a case; an empty
// scope falls through to whole-case invalidation.
func (s *ContextService) Invalidate(ctx context.Context, key domain.CaseKey, scope string) (int, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	if strings.TrimSpace(scope) == "" {
		return s.cache.InvalidateCase(ctx, key)
	}
	parsed, err := domain.ParseScope(scope)
	if err != nil {
		return 0, apperrors.NewValidation(fmt.Sprintf("unknown scope %q", scope))
	}
	return s.cache.Invalidate(ctx, key, parsed.Dimensions())
}

// InvalidateCase removes every cached entry for the case across all scopes.
func (s *ContextService) InvalidateCase(ctx context.Context, key domain.CaseKey) (int, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	return s.cache.InvalidateCase(ctx, key)
}

// CacheStats snapshots the cache chain.
func (s *ContextService) CacheStats() cache.ManagerStats {
	return s.cache.Stats()
}

// Health probes the graph service and the case store. The cache is
// in-process and always reported healthy alongside its tier count.
func (s *ContextService) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:     "ok",
		Components: map[string]ComponentHealth{},
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	if err := s.graph.Health(probeCtx); err != nil {
		report.Status = "degraded"
		report.Components["graph"] = ComponentHealth{Status: "unavailable", Error: err.Error()}
	} else {
		report.Components["graph"] = ComponentHealth{Status: "ok"}
	}

	if p, ok := s.store.(pinger); ok {
		if err := p.Ping(probeCtx); err != nil {
			report.Status = "degraded"
			report.Components["casedb"] = ComponentHealth{Status: "unavailable", Error: err.Error()}
		} else {
			report.Components["casedb"] = ComponentHealth{Status: "ok"}
		}
	} else {
		report.Components["casedb"] = ComponentHealth{Status: "ok"}
	}

	report.Components["cache"] = ComponentHealth{Status: "ok"}
	return report
}

// resolve normalizes the scope and dimension names into the effective set.
func (s *ContextService) resolve(scope string, dimensions []string) (domain.Scope, []domain.DimensionName, error) {
	parsed := domain.ScopeStandard
	if strings.TrimSpace(scope) != "" {
		var err error
		parsed, err = domain.ParseScope(scope)
		if err != nil {
			return "", nil, apperrors.NewValidation(fmt.Sprintf("unknown scope %q", scope))
		}
	}
	dims, err := domain.ResolveDimensions(parsed, dimensions)
	if err != nil {
		return "", nil, apperrors.NewValidation(err.Error())
	}
	return parsed, dims, nil
}

func (s *ContextService) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OverallDeadline <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.OverallDeadline)
}

func (s *ContextService) buildFunc(key domain.CaseKey, scope domain.Scope, dims []domain.DimensionName) cache.BuildFunc {
	return func(buildCtx context.Context) (*domain.ContextRecord, error) {
		return s.builder.Build(buildCtx, key, scope, dims)
	}
}

func validateKey(key domain.CaseKey) error {
	switch err := key.Validate(); err {
	case nil:
		return nil
	case domain.ErrEmptyCaseID:
		return apperrors.NewMissingCaseID(err.Error())
	default:
		return apperrors.NewValidation(err.Error())
	}
}
