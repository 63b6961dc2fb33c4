// Package navigation resolves user-facing identifiers to coordinates,
// commits the center, updates the URL, and kicks off follow-up loads.
package navigation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/loader"
	"hexmap/internal/ports"
)

// backgroundTimeout bounds the detached follow-up loads spawned per
// navigation.
const backgroundTimeout = 30 * time.Second

// Request names a navigation target. Target is either a coordinate id
// (recognized by its owner/group delimiter) or an opaque database id.
type Request struct {
	Target string
	// ReplaceHistory replaces the current history entry instead of pushing.
	ReplaceHistory bool
}

// Result reports what a navigation did.
type Result struct {
	Success       bool
	Err           error
	CenterUpdated bool
	URLUpdated    bool
}

// Navigator is the navigation core. Server, bus, and history are optional
// collaborators; a nil port simply skips its step.
type Navigator struct {
	log     *zap.Logger
	store   *cache.Store
	loader  *loader.Loader
	server  ports.ServerService
	bus     ports.EventBus
	history ports.History
	source  string
}

// New creates a navigator. Source tags the events it emits.
func New(log *zap.Logger, store *cache.Store, ld *loader.Loader, server ports.ServerService, bus ports.EventBus, history ports.History, source string) *Navigator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Navigator{
		log:     log.Named("navigation"),
		store:   store,
		loader:  ld,
		server:  server,
		bus:     bus,
		history: history,
		source:  source,
	}
}

// NavigateToItem runs the navigation state machine: resolve the target,
// load it if missing, commit the center, update the URL, emit the event,
// and detach background loads. A failed navigation leaves the prior center
// intact. Concurrent calls for the same target are not de-duplicated;
// merges are idempotent, so the last commit wins.
func (n *Navigator) NavigateToItem(ctx context.Context, req Request) Result {
	coord, item, err := n.resolve(ctx, req.Target)
	if err != nil {
		return Result{Err: err}
	}
	if coord == nil {
		return Result{Err: domain.ErrNotFound.New("no item or coordinate for %q", req.Target)}
	}
	centerID := coord.ID()
	if item == nil {
		// Item body still pending; commit the center anyway and let the
		// background prefetch fill it in.
		n.log.Debug("navigating to coordinate without cached item", zap.String("center", centerID))
	}

	n.filterExpansion(*coord)

	prevCenter := n.store.CurrentCenter()
	n.store.Dispatch(cache.SetCenter{CoordID: centerID})

	urlUpdated := n.updateURL(centerID, req.ReplaceHistory)

	if n.bus != nil {
		n.bus.Emit(domain.Event{
			Kind:    domain.EventNavigation,
			Source:  n.source,
			CoordID: centerID,
		})
	}

	go n.background(*coord)

	return Result{
		Success:       true,
		CenterUpdated: prevCenter != centerID,
		URLUpdated:    urlUpdated,
	}
}

// resolve maps the target to a coordinate and, when cached or fetchable, an
// item. A nil coordinate with a nil error means the target resolves nowhere.
func (n *Navigator) resolve(ctx context.Context, target string) (*domain.Coordinate, *domain.Item, error) {
	if strings.Contains(target, ",") {
		coord, err := domain.ParseID(target)
		if err != nil {
			return nil, nil, err
		}
		if item, ok := n.store.Item(coord.ID()); ok {
			return &coord, &item, nil
		}
		return &coord, nil, nil
	}

	if item, ok := n.store.ItemByDBID(target); ok {
		coord := item.Metadata.Coord
		return &coord, &item, nil
	}

	if n.server == nil {
		return nil, nil, nil
	}

	wire, err := n.server.GetRootItemByID(ctx, target)
	if err != nil {
		// Not fatal here; the target may still be unknown rather than the
		// fetch path broken.
		n.log.Warn("root item fetch failed", zap.String("target", target), zap.Error(err))
		return nil, nil, nil
	}
	if wire == nil {
		return nil, nil, nil
	}
	item, err := domain.ItemFromServer(*wire)
	if err != nil {
		return nil, nil, err
	}
	n.store.Dispatch(cache.LoadRegion{
		Items:         []domain.Item{item},
		CenterCoordID: item.Metadata.CoordID,
		MaxDepth:      0,
	})
	coord := item.Metadata.Coord
	return &coord, &item, nil
}

// filterExpansion retains a previously expanded id only when its relative
// depth from the new center has magnitude at most one. Stale expansion state
// must not carry across distant regions.
func (n *Navigator) filterExpansion(center domain.Coordinate) {
	expanded := n.store.ExpandedItemIDs()
	kept := expanded[:0]
	for _, id := range expanded {
		coord, err := domain.ParseID(id)
		if err != nil || !coord.SameMap(center) {
			continue
		}
		if delta := coord.DepthDelta(center); delta < -1 || delta > 1 {
			continue
		}
		kept = append(kept, id)
	}
	n.store.Dispatch(cache.SetExpandedItems{IDs: kept})
}

func (n *Navigator) updateURL(centerID string, replace bool) bool {
	if n.history == nil {
		return false
	}
	var b strings.Builder
	b.WriteString("/map?center=")
	b.WriteString(centerID)
	if expanded := n.store.ExpandedItemIDs(); len(expanded) > 0 {
		b.WriteString("&expandedItems=")
		b.WriteString(strings.Join(expanded, ","))
	}
	if replace {
		n.history.Replace(b.String())
	} else {
		n.history.Push(b.String())
	}
	return true
}

// background runs the fire-and-forget follow-ups of a navigation: prefetch
// the region, backfill missing ancestors, and make sure at least one sibling
// generation is cached. It is detached from the triggering call and only
// ever logs.
func (n *Navigator) background(center domain.Coordinate) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	centerID := center.ID()
	if !n.store.IsRegionLoaded(centerID, n.store.Config().MaxDepth) {
		n.loader.PrefetchRegion(ctx, centerID)
	}

	n.loadMissingAncestors(ctx, center)
	n.loadSiblingGeneration(ctx, center)
}

func (n *Navigator) loadMissingAncestors(ctx context.Context, center domain.Coordinate) {
	if n.server == nil {
		return
	}
	missing := false
	for coord, ok := center.Parent(); ok; coord, ok = coord.Parent() {
		if _, cached := n.store.Item(coord.ID()); !cached {
			missing = true
			break
		}
	}
	if !missing {
		return
	}

	wire, err := n.server.GetAncestors(ctx, center.ID())
	if err != nil {
		n.log.Debug("ancestor load failed", zap.String("center", center.ID()), zap.Error(err))
		return
	}
	items, err := domain.ItemsFromServer(wire)
	if err != nil {
		n.log.Debug("ancestor payload invalid", zap.String("center", center.ID()), zap.Error(err))
		return
	}
	byID := make(map[string]domain.Item, len(items))
	for _, item := range items {
		byID[item.Metadata.CoordID] = item
	}
	n.store.Dispatch(cache.UpdateItems{Items: byID})
}

func (n *Navigator) loadSiblingGeneration(ctx context.Context, center domain.Coordinate) {
	parent, ok := center.Parent()
	if !ok {
		return
	}
	for _, sibling := range center.Siblings() {
		if _, cached := n.store.Item(sibling.ID()); cached {
			return
		}
	}
	if err := n.loader.LoadItemChildren(ctx, parent.ID()); err != nil {
		n.log.Debug("sibling load failed", zap.String("parent", parent.ID()), zap.Error(err))
	}
}
