package di

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"context-engine/internal/config"
	"context-engine/internal/interfaces/http/handlers"
	"context-engine/internal/middleware"
	"context-engine/internal/observability"
	"context-engine/pkg/auth"
)

type routerDeps struct {
	cfg            *config.Config
	contextHandler *handlers.ContextHandler
	cacheHandler   *handlers.CacheHandler
	healthHandler  *handlers.HealthHandler
	authenticator  auth.Authenticator
	collector      *observability.Collector
	logger         *zap.Logger
}

// newRouter assembles the HTTP surface. Probes and metrics sit outside the
// API group so they skip CORS, the request timeout, and authentication.
func newRouter(deps routerDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(deps.logger))
	r.Use(middleware.Metrics(deps.collector))
	r.Use(middleware.Recovery(deps.logger))

	r.Get("/health", deps.healthHandler.Live)
	r.Get("/ready", deps.healthHandler.Ready)
	if deps.cfg.Metrics.Enabled {
		r.Handle("/metrics", deps.collector.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.cfg.CORS.Enabled {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   deps.cfg.CORS.AllowedOrigins,
				AllowedMethods:   deps.cfg.CORS.AllowedMethods,
				AllowedHeaders:   deps.cfg.CORS.AllowedHeaders,
				MaxAge:           deps.cfg.CORS.MaxAge,
				AllowCredentials: false,
			}))
		}
		if deps.cfg.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(deps.cfg.Server.RequestTimeout, deps.logger))
		}
		if deps.authenticator != nil {
			r.Use(middleware.Auth(deps.authenticator, deps.logger))
		}

		r.Get("/health", deps.healthHandler.Ready)

		r.Route("/context", func(r chi.Router) {
			r.Post("/retrieve", deps.contextHandler.RetrieveContext)
			r.Get("/retrieve", deps.contextHandler.RetrieveContextQuery)
			r.Post("/dimension/retrieve", deps.contextHandler.RetrieveDimension)
			r.Post("/refresh", deps.contextHandler.RefreshContext)
			r.Post("/batch/retrieve", deps.contextHandler.BatchRetrieve)
		})

		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", deps.cacheHandler.Stats)
			r.Delete("/invalidate", deps.cacheHandler.Invalidate)
			r.Post("/invalidate/case", deps.cacheHandler.InvalidateCase)
			r.Post("/warmup", deps.cacheHandler.Warmup)
		})
	})

	return r
}
