package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"context-engine/internal/application/services"
	"context-engine/internal/config"
	"context-engine/internal/infrastructure/cache"
	"context-engine/internal/infrastructure/casedb"
	"context-engine/internal/infrastructure/graphrag"
	"context-engine/internal/observability"
)

// Container holds the composed service and owns the lifecycle of everything
// that needs explicit shutdown.
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	LogLevel     zap.AtomicLevel
	Collector    *observability.Collector
	Tracer       *observability.TracerProvider
	Watcher      *config.Watcher
	Graph        *graphrag.Client
	Store        *casedb.Store
	CacheManager *cache.Manager
	Service      *services.ContextService
	Router       *chi.Mux

	stopSweep func()
}

// NewContainer composes the service by calling the providers in dependency
// order. This is the runtime path; the wire injector in wire.go mirrors it
// for generation.
func NewContainer(ctx context.Context) (*Container, error) {
	cfg, err := provideConfig()
	if err != nil {
		return nil, err
	}

	logging, err := provideLogging(cfg)
	if err != nil {
		return nil, err
	}
	logger, level := logging.Logger, logging.Level

	collector := provideCollector(cfg)

	tracer, err := provideTracer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	graph := provideGraphClient(cfg, logger, collector)

	store, err := provideCaseStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to case store: %w", err)
	}

	tiers, stopSweep := provideTiers(cfg, logger)
	manager := provideCacheManager(tiers, cfg, collector, logger)

	registry := provideAnalyzers(graph, store, logger)
	b := provideBuilder(registry, store, cfg, collector, logger)
	svc := provideContextService(b, manager, graph, store, cfg, tracer, logger)

	authenticator, err := provideAuthenticator(cfg, logger)
	if err != nil {
		stopSweep()
		store.Close()
		return nil, err
	}

	router := provideRouter(cfg,
		provideContextHandler(svc, cfg, logger),
		provideCacheHandler(svc, cfg, logger),
		provideHealthHandler(svc),
		authenticator, collector, logger)

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		stopSweep()
		store.Close()
		return nil, fmt.Errorf("failed to start config watcher: %w", err)
	}

	// Only the reloadable subset takes effect at runtime: cache TTL policy
	// and log verbosity. Everything else requires a restart.
	watcher.OnChange(func(next *config.Config) {
		manager.ApplyTTLs(next.Cache)
		if next.Logging.Level != "" {
			if parsed, parseErr := zapcore.ParseLevel(next.Logging.Level); parseErr == nil {
				level.SetLevel(parsed)
			} else {
				logger.Warn("ignoring invalid log level from reload",
					zap.String("level", next.Logging.Level))
			}
		}
	})

	logger.Info("container initialized",
		zap.String("version", Version),
		zap.String("environment", string(cfg.Environment)),
		zap.String("graph_endpoint", cfg.Graph.Endpoint),
		zap.Bool("memory_cache", cfg.Cache.EnableMemory),
		zap.Bool("auth", authenticator != nil),
	)

	return &Container{
		Config:       cfg,
		Logger:       logger,
		LogLevel:     level,
		Collector:    collector,
		Tracer:       tracer,
		Watcher:      watcher,
		Graph:        graph,
		Store:        store,
		CacheManager: manager,
		Service:      svc,
		Router:       router,
		stopSweep:    stopSweep,
	}, nil
}

// Shutdown releases container-owned resources: the config watcher, the cache
// sweep, the tracer exporter, and the database pool. Safe to call once after
// the HTTP server has drained.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error

	if c.Watcher != nil {
		c.Watcher.Stop()
	}
	if c.stopSweep != nil {
		c.stopSweep()
	}
	if c.Tracer != nil {
		if err := c.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("case store close: %w", err))
		}
	}

	return errors.Join(errs...)
}
