// Package loader fetches subtrees from the server service and merges them
// into the cache, enforcing the "already loaded deep enough" policy.
package loader

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/ports"
)

// Loader wraps the external server service with region-scoped lazy loading.
type Loader struct {
	log     *zap.Logger
	store   *cache.Store
	server  ports.ServerService
	flights singleflight.Group
}

// New creates a loader over the given store and server service.
func New(log *zap.Logger, store *cache.Store, server ports.ServerService) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		log:    log.Named("loader"),
		store:  store,
		server: server,
	}
}

// LoadRegion fetches the subtree of maxDepth generations around the center
// and merges it. It is a no-op when an unexpired region entry already covers
// the center at least that deep. Identical concurrent calls share one fetch;
// merges are idempotent unions, so last-completed-wins is safe.
func (l *Loader) LoadRegion(ctx context.Context, centerCoordID string, maxDepth int) error {
	if _, err := domain.ParseID(centerCoordID); err != nil {
		return err
	}
	if l.store.IsRegionLoaded(centerCoordID, maxDepth) {
		return nil
	}

	key := centerCoordID + "|" + strconv.Itoa(maxDepth)
	_, err, _ := l.flights.Do(key, func() (interface{}, error) {
		// A flight that finished while we waited may have covered us.
		if l.store.IsRegionLoaded(centerCoordID, maxDepth) {
			return nil, nil
		}
		return nil, l.fetchRegion(ctx, centerCoordID, maxDepth)
	})
	return err
}

func (l *Loader) fetchRegion(ctx context.Context, centerCoordID string, maxDepth int) error {
	l.store.Dispatch(cache.SetLoading{Loading: true})
	defer l.store.Dispatch(cache.SetLoading{Loading: false})

	wire, err := l.server.GetItemWithGenerations(ctx, ports.GenerationsRequest{
		CoordID:     centerCoordID,
		Generations: maxDepth,
	})
	if err != nil {
		err = domain.ErrNetwork.Wrap(err)
		l.store.Dispatch(cache.SetError{Err: err})
		return err
	}

	items, err := domain.ItemsFromServer(wire)
	if err != nil {
		l.store.Dispatch(cache.SetError{Err: err})
		return err
	}

	l.store.Dispatch(cache.LoadRegion{
		Items:         items,
		CenterCoordID: centerCoordID,
		MaxDepth:      maxDepth,
	})
	l.store.Dispatch(cache.SetError{Err: nil})
	return nil
}

// LoadItemChildren fetches one generation under the parent and merges it
// without widening any region metadata.
func (l *Loader) LoadItemChildren(ctx context.Context, parentCoordID string) error {
	if _, err := domain.ParseID(parentCoordID); err != nil {
		return err
	}

	key := "children|" + parentCoordID
	_, err, _ := l.flights.Do(key, func() (interface{}, error) {
		wire, err := l.server.FetchItemsForCoordinate(ctx, parentCoordID)
		if err != nil {
			return nil, domain.ErrNetwork.Wrap(err)
		}
		items, err := domain.ItemsFromServer(wire)
		if err != nil {
			return nil, err
		}
		l.store.Dispatch(cache.LoadItemChildren{
			Items:         items,
			ParentCoordID: parentCoordID,
		})
		return nil, nil
	})
	return err
}

// PrefetchRegion loads the center's region at the configured default depth,
// best-effort. Failures are logged and swallowed, never surfaced.
func (l *Loader) PrefetchRegion(ctx context.Context, centerCoordID string) {
	maxDepth := l.store.Config().MaxDepth
	if err := l.LoadRegion(ctx, centerCoordID, maxDepth); err != nil {
		l.log.Debug("prefetch failed",
			zap.String("center", centerCoordID),
			zap.Int("maxDepth", maxDepth),
			zap.Error(err))
	}
}
