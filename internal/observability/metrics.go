// Package observability provides the Prometheus metrics collector and the
// OpenTelemetry tracing setup for the context engine.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns every metric the service exports. It registers on a private
// registry so tests can construct collectors freely without collisions.
type Collector struct {
	registry *prometheus.Registry

	// HTTP surface
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Context builds
	BuildsTotal       *prometheus.CounterVec
	BuildDuration     prometheus.Histogram
	DimensionFailures *prometheus.CounterVec
	ContextScore      prometheus.Histogram

	// Cache
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheStores        *prometheus.CounterVec
	CacheDroppedStores prometheus.Counter
	CacheInvalidations prometheus.Counter
	FlightFollowers    prometheus.Counter

	// Upstream graph service
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	UpstreamRetries  prometheus.Counter
	IsolationDrops   prometheus.Counter
	BreakerState     *prometheus.GaugeVec
}

// NewCollector creates and registers all metrics under the given namespace.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "context_engine"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),

		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "context_builds_total",
			Help:      "Context builds by outcome (complete, partial, error).",
		}, []string{"outcome"}),

		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_build_duration_seconds",
			Help:      "Wall time of context builds.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}),

		DimensionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dimension_failures_total",
			Help:      "Failed dimension analyses by dimension and reason.",
		}, []string{"dimension", "reason"}),

		ContextScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "context_score",
			Help:      "Distribution of computed context scores.",
			Buckets:   []float64{0, .1, .2, .3, .4, .5, .6, .7, .8, .85, .9, .95, 1},
		}),

		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by tier.",
		}, []string{"tier"}),

		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by tier.",
		}, []string{"tier"}),

		CacheStores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_stores_total",
			Help:      "Cache stores by tier.",
		}, []string{"tier"}),

		CacheDroppedStores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_dropped_stores_total",
			Help:      "Stores dropped because an invalidation raced the build.",
		}),

		CacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Invalidation requests.",
		}),

		FlightFollowers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_followers_total",
			Help:      "Lookups that attached to an in-flight build.",
		}),

		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Knowledge-graph requests by operation and outcome.",
		}, []string{"operation", "outcome"}),

		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Knowledge-graph request latency by operation.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		}, []string{"operation"}),

		UpstreamRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Retried knowledge-graph requests.",
		}),

		IsolationDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "isolation_drops_total",
			Help:      "Graph results discarded because they belong to another case.",
		}),

		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Circuit breaker state per endpoint (0 closed, 1 half-open, 2 open).",
		}, []string{"endpoint"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.BuildsTotal,
		c.BuildDuration,
		c.DimensionFailures,
		c.ContextScore,
		c.CacheHits,
		c.CacheMisses,
		c.CacheStores,
		c.CacheDroppedStores,
		c.CacheInvalidations,
		c.FlightFollowers,
		c.UpstreamRequests,
		c.UpstreamDuration,
		c.UpstreamRetries,
		c.IsolationDrops,
		c.BreakerState,
	)

	return c
}

// Handler serves the collector's registry for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test assertions.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
