// Package engine assembles the cache, loader, navigator, mutation
// coordinator, and sync engine over one server service. The binaries and the
// MCP/TUI adapters all construct their stack through here.
package engine

import (
	"context"

	"go.uber.org/zap"

	"hexmap/internal/adapters/bus"
	"hexmap/internal/adapters/history"
	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/loader"
	"hexmap/internal/mutation"
	"hexmap/internal/navigation"
	"hexmap/internal/ports"
	"hexmap/internal/syncer"
)

// Options tunes an Engine.
type Options struct {
	Cache  cache.Config
	Sync   syncer.Config
	Source string
}

// DefaultOptions returns the standard configuration.
func DefaultOptions() Options {
	return Options{
		Cache:  cache.DefaultConfig(),
		Sync:   syncer.DefaultConfig(),
		Source: "hexmap",
	}
}

// Engine bundles the assembled components.
type Engine struct {
	Log       *zap.Logger
	Store     *cache.Store
	Loader    *loader.Loader
	Navigator *navigation.Navigator
	Mutator   *mutation.Coordinator
	Syncer    *syncer.Engine
	Bus       *bus.Bus
	History   *history.Recorder
	Server    ports.ServerService
}

// New wires an engine over the given server service.
func New(log *zap.Logger, server ports.ServerService, opts Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}

	store := cache.NewStore(opts.Cache)
	eventBus := bus.New()
	hist := history.New()
	ld := loader.New(log, store, server)
	nav := navigation.New(log, store, ld, server, eventBus, hist, opts.Source)
	mut := mutation.New(log, store, ld, server, eventBus, opts.Source)
	sync := syncer.New(log, store, ld, opts.Sync, mut)

	return &Engine{
		Log:       log,
		Store:     store,
		Loader:    ld,
		Navigator: nav,
		Mutator:   mut,
		Syncer:    sync,
		Bus:       eventBus,
		History:   hist,
		Server:    server,
	}
}

// Bootstrap loads the root region and commits it as the center, then starts
// the background sync. Safe to call once at startup.
func (e *Engine) Bootstrap(ctx context.Context, rootCoordID string) error {
	if _, err := domain.ParseID(rootCoordID); err != nil {
		return err
	}
	if err := e.Loader.LoadRegion(ctx, rootCoordID, e.Store.Config().MaxDepth); err != nil {
		return err
	}
	e.Store.Dispatch(cache.SetCenter{CoordID: rootCoordID})
	e.Syncer.Start()
	return nil
}

// Shutdown stops the background sync.
func (e *Engine) Shutdown() {
	e.Syncer.Stop()
}
