//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/google/wire"
)

// InitializeRouter is the wire injector for the full HTTP surface. The
// returned cleanup stops the cache sweep. Lifecycle pieces outside the
// dependency graph (config watcher, store close, tracer flush) belong to
// the Container in the hand-wired path.
func InitializeRouter(ctx context.Context) (*chi.Mux, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
