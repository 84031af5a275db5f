// This file groups the providers into wire sets. The sets exist for the wire
// tool; the runtime path in container.go calls the same providers by hand.
package di

import (
	"github.com/google/wire"

	"context-engine/internal/infrastructure/casedb"
	"context-engine/internal/infrastructure/graphrag"
	"context-engine/internal/ports"
)

// ConfigSet loads configuration and builds the logger from it. The log level
// handle stays out of the graph; hot reload is a container concern.
var ConfigSet = wire.NewSet(
	provideConfig,
	provideLogging,
	provideLogger,
)

// ObservabilitySet provides the metrics collector and the tracer.
var ObservabilitySet = wire.NewSet(
	provideCollector,
	provideTracer,
)

// InfrastructureSet provides the upstream clients and the cache chain, bound
// to the ports the application layer consumes.
var InfrastructureSet = wire.NewSet(
	provideGraphClient,
	provideCaseStore,
	provideTiers,
	provideCacheManager,
	wire.Bind(new(ports.GraphQuerier), new(*graphrag.Client)),
	wire.Bind(new(ports.CaseStore), new(*casedb.Store)),
)

// ApplicationSet provides the analyzers, the builder, and the service facade.
var ApplicationSet = wire.NewSet(
	provideAnalyzers,
	provideBuilder,
	provideContextService,
)

// InterfaceSet provides the HTTP handlers and the router.
var InterfaceSet = wire.NewSet(
	provideAuthenticator,
	provideContextHandler,
	provideCacheHandler,
	provideHealthHandler,
	provideRouter,
)

// SuperSet composes every layer for the full router graph.
var SuperSet = wire.NewSet(
	ConfigSet,
	ObservabilitySet,
	InfrastructureSet,
	ApplicationSet,
	InterfaceSet,
)
