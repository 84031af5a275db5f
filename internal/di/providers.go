// Package di wires the service together. Provider functions build each
// component from configuration; wire_sets.go groups them for the wire tool
// and container.go composes them by hand for the runtime path.
package di

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"context-engine/internal/application/analyzers"
	"context-engine/internal/application/builder"
	"context-engine/internal/application/services"
	"context-engine/internal/config"
	"context-engine/internal/infrastructure/cache"
	"context-engine/internal/infrastructure/casedb"
	"context-engine/internal/infrastructure/graphrag"
	"context-engine/internal/interfaces/http/handlers"
	"context-engine/internal/observability"
	"context-engine/internal/ports"
	"context-engine/pkg/auth"
)

// Version is stamped at build time via -ldflags; it shows up in the
// liveness probe and the startup log.
var Version = "dev"

func provideConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loggingComponents pairs the logger with its level handle so reloads can
// adjust verbosity on the live logger.
type loggingComponents struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

func provideLogging(cfg *config.Config) (*loggingComponents, error) {
	logger, level, err := observability.NewLogger(cfg.Logging, cfg.Environment)
	if err != nil {
		return nil, err
	}
	return &loggingComponents{Logger: logger, Level: level}, nil
}

func provideLogger(lc *loggingComponents) *zap.Logger { return lc.Logger }

func provideCollector(cfg *config.Config) *observability.Collector {
	namespace := cfg.Metrics.Namespace
	if namespace == "" {
		namespace = "context_engine"
	}
	return observability.NewCollector(namespace)
}

func provideTracer(cfg *config.Config) (*observability.TracerProvider, error) {
	return observability.InitTracing(cfg.Tracing, string(cfg.Environment))
}

func provideGraphClient(cfg *config.Config, logger *zap.Logger, collector *observability.Collector) *graphrag.Client {
	return graphrag.NewClient(cfg.Graph, logger, collector)
}

func provideCaseStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*casedb.Store, error) {
	return casedb.NewStore(ctx, cfg.CaseDB, logger)
}

// provideTiers builds the cache tier chain, warmest first. The returned
// cleanup function stops the memory tier's expiry sweep.
func provideTiers(cfg *config.Config, logger *zap.Logger) ([]ports.CacheTier, func()) {
	tiers := make([]ports.CacheTier, 0, 3)
	stop := func() {}

	if cfg.Cache.EnableMemory {
		capacity := cfg.Cache.MemoryCapacity
		if capacity <= 0 {
			capacity = 1000
		}
		memory := cache.NewMemoryTier(capacity, logger)
		if cfg.Cache.SweepInterval > 0 {
			stop = memory.StartCleanup(cfg.Cache.SweepInterval)
		}
		tiers = append(tiers, memory)
	}

	// The distributed and persistent slots stay no-ops until real backends
	// exist; enabling them only exercises the chain walk.
	if cfg.Cache.EnablePersistent {
		tiers = append(tiers, cache.NewNoopTier("distributed"), cache.NewNoopTier("persistent"))
	}

	return tiers, stop
}

func provideCacheManager(tiers []ports.CacheTier, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *cache.Manager {
	return cache.NewManager(tiers, cfg.Cache, collector, logger)
}

func provideAnalyzers(graph ports.GraphQuerier, store ports.CaseStore, logger *zap.Logger) analyzers.Registry {
	return analyzers.NewRegistry(graph, store, logger)
}

func provideBuilder(registry analyzers.Registry, store ports.CaseStore, cfg *config.Config, collector *observability.Collector, logger *zap.Logger) *builder.Builder {
	return builder.NewBuilder(registry, store, cfg.Build, collector, logger)
}

func provideContextService(
	b *builder.Builder,
	manager *cache.Manager,
	graph ports.GraphQuerier,
	store ports.CaseStore,
	cfg *config.Config,
	tracer *observability.TracerProvider,
	logger *zap.Logger,
) *services.ContextService {
	return services.NewContextService(b, manager, graph, store, cfg.Build, tracer, logger)
}

// provideAuthenticator resolves the configured auth provider; nil means auth
// is disabled and the middleware is not installed.
func provideAuthenticator(cfg *config.Config, logger *zap.Logger) (auth.Authenticator, error) {
	switch cfg.Auth.Provider {
	case "", "none":
		return nil, nil
	case "jwt":
		validator, err := auth.NewJWTValidator(auth.JWTConfig{
			SigningMethod: "HS256",
			SecretKey:     cfg.Auth.JWTSecret,
			Issuer:        cfg.Auth.JWTIssuer,
			Audience:      cfg.Auth.JWTAudience,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure JWT auth: %w", err)
		}
		logger.Info("authentication enabled", zap.String("provider", "jwt"))
		return validator, nil
	case "supabase":
		validator, err := auth.NewSupabaseValidator(cfg.Auth.SupabaseURL, cfg.Auth.SupabaseKey)
		if err != nil {
			return nil, fmt.Errorf("failed to configure Supabase auth: %w", err)
		}
		logger.Info("authentication enabled", zap.String("provider", "supabase"))
		return validator, nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}

func provideContextHandler(svc *services.ContextService, cfg *config.Config, logger *zap.Logger) *handlers.ContextHandler {
	return handlers.NewContextHandler(svc, cfg.Auth, logger)
}

func provideCacheHandler(svc *services.ContextService, cfg *config.Config, logger *zap.Logger) *handlers.CacheHandler {
	return handlers.NewCacheHandler(svc, cfg.Auth, logger)
}

func provideHealthHandler(svc *services.ContextService) *handlers.HealthHandler {
	return handlers.NewHealthHandler(svc, Version)
}

func provideRouter(
	cfg *config.Config,
	contextHandler *handlers.ContextHandler,
	cacheHandler *handlers.CacheHandler,
	healthHandler *handlers.HealthHandler,
	authenticator auth.Authenticator,
	collector *observability.Collector,
	logger *zap.Logger,
) *chi.Mux {
	return newRouter(routerDeps{
		cfg:            cfg,
		contextHandler: contextHandler,
		cacheHandler:   cacheHandler,
		healthHandler:  healthHandler,
		authenticator:  authenticator,
		collector:      collector,
		logger:         logger,
	})
}
