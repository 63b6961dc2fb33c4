// Package mutation applies optimistic edits and confirms or rolls them back
// against server results. The server stays authoritative: on failure the
// exact pre-mutation snapshot of every touched item is restored.
package mutation

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/loader"
	"hexmap/internal/ports"
)

// CreateRequest creates a tile at a free coordinate.
type CreateRequest struct {
	Coord      domain.Coordinate
	Title      string
	Content    string
	Preview    string
	Link       string
	ItemType   string
	Visibility string
}

// UpdateRequest patches a tile's data; nil fields are left untouched.
type UpdateRequest struct {
	Title   *string
	Content *string
	Preview *string
	Link    *string
}

// Coordinator funnels every mutation through optimistic apply, server call,
// then confirm-merge or rollback, strictly in that order.
type Coordinator struct {
	log    *zap.Logger
	store  *cache.Store
	loader *loader.Loader
	server ports.ServerService
	bus    ports.EventBus
	source string

	mu      sync.Mutex
	pending map[string]int // coord id -> in-flight mutation count
}

// New creates a coordinator. Source tags the events it emits.
func New(log *zap.Logger, store *cache.Store, ld *loader.Loader, server ports.ServerService, bus ports.EventBus, source string) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		log:     log.Named("mutation"),
		store:   store,
		loader:  ld,
		server:  server,
		bus:     bus,
		source:  source,
		pending: make(map[string]int),
	}
}

// snapshot remembers the exact prior state a failed server call must bring
// back: every touched item (nil records absence), any region entries keyed at
// the touched coordinates, and the expansion set. RemoveItem clears all
// three, so an optimistic delete or move needs more than the item restored.
type snapshot struct {
	items    map[string]*domain.Item
	regions  map[string]domain.RegionMetadata
	expanded []string
}

func (c *Coordinator) takeSnapshot(coordIDs ...string) snapshot {
	snap := snapshot{
		items:    make(map[string]*domain.Item, len(coordIDs)),
		regions:  make(map[string]domain.RegionMetadata, len(coordIDs)),
		expanded: c.store.ExpandedItemIDs(),
	}
	for _, id := range coordIDs {
		if item, ok := c.store.Item(id); ok {
			clone := item.Clone()
			snap.items[id] = &clone
		} else {
			snap.items[id] = nil
		}
		if meta, ok := c.store.RegionMeta(id); ok {
			snap.regions[id] = meta
		}
	}
	return snap
}

func (c *Coordinator) restore(snap snapshot) {
	for id, item := range snap.items {
		if item == nil {
			c.store.Dispatch(cache.RemoveItem{CoordID: id})
		} else {
			c.store.Dispatch(cache.UpdateItems{Items: map[string]domain.Item{id: *item}})
		}
	}
	for _, meta := range snap.regions {
		c.store.Dispatch(cache.RestoreRegionMeta{Meta: meta})
	}
	c.store.Dispatch(cache.SetExpandedItems{IDs: snap.expanded})
}

// acquirePending registers coordinate ids as mutation-in-flight until the
// returned release runs. The sync engine skips regions containing pending
// ids so a stale read can never clobber an unconfirmed optimistic value.
func (c *Coordinator) acquirePending(coordIDs ...string) (release func()) {
	c.mu.Lock()
	for _, id := range coordIDs {
		c.pending[id]++
	}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		for _, id := range coordIDs {
			if c.pending[id] <= 1 {
				delete(c.pending, id)
			} else {
				c.pending[id]--
			}
		}
		c.mu.Unlock()
	}
}

// PendingCoordIDs returns the coordinate ids with unsettled mutations.
func (c *Coordinator) PendingCoordIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	return ids
}

// HasPendingWithin reports whether any unsettled mutation touches the region
// of maxDepth generations around the center.
func (c *Coordinator) HasPendingWithin(center domain.Coordinate, maxDepth int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.pending {
		coord, err := domain.ParseID(id)
		if err != nil {
			continue
		}
		if coord.WithinRegion(center, maxDepth) {
			return true
		}
	}
	return false
}

func (c *Coordinator) optimisticEnabled() bool {
	return c.store.Config().EnableOptimisticUpdates
}

func (c *Coordinator) emit(kind domain.EventKind, item domain.Item) {
	if c.bus == nil {
		return
	}
	c.bus.Emit(domain.Event{
		Kind:    kind,
		Source:  c.source,
		CoordID: item.Metadata.CoordID,
		Item:    &item,
	})
}

// Create makes a tile at the request's coordinate. The optimistic item
// carries a placeholder id and the Pending flag until the server assigns the
// authoritative one.
func (c *Coordinator) Create(ctx context.Context, req CreateRequest) (domain.Item, error) {
	coordID := req.Coord.ID()
	if _, exists := c.store.Item(coordID); exists {
		return domain.Item{}, domain.ErrServer.New("coordinate %s already occupied", coordID)
	}

	parentID := ""
	if parent, ok := req.Coord.Parent(); ok {
		if parentItem, cached := c.store.Item(parent.ID()); cached {
			parentID = parentItem.Metadata.DBID
		}
	}

	snap := c.takeSnapshot(coordID)
	release := c.acquirePending(coordID)
	defer release()

	if c.optimisticEnabled() {
		optimistic := domain.Item{
			Metadata: domain.ItemMetadata{
				DBID:     "pending:" + coordID,
				CoordID:  coordID,
				ParentID: parentID,
				Coord:    req.Coord,
				Depth:    req.Coord.Depth(),
				OwnerID:  req.Coord.OwnerID,
			},
			Data: domain.ItemData{
				Title:   req.Title,
				Content: req.Content,
				Preview: req.Preview,
				Link:    req.Link,
			},
			State: domain.ItemState{Pending: true},
		}
		c.store.Dispatch(cache.UpdateItems{Items: map[string]domain.Item{coordID: optimistic}})
	}

	wire, err := c.server.CreateItem(ctx, ports.CreateItemRequest{
		Coordinates: coordID,
		ParentID:    parentID,
		Title:       req.Title,
		Content:     req.Content,
		Preview:     req.Preview,
		Link:        req.Link,
		ItemType:    req.ItemType,
		OwnerID:     req.Coord.OwnerID,
		Visibility:  req.Visibility,
	})
	if err != nil {
		c.restore(snap)
		return domain.Item{}, domain.ErrServer.Wrap(err)
	}

	item, err := domain.ItemFromServer(*wire)
	if err != nil {
		c.restore(snap)
		return domain.Item{}, err
	}
	c.store.Dispatch(cache.UpdateItems{Items: map[string]domain.Item{item.Metadata.CoordID: item}})
	c.emit(domain.EventTileCreated, item)
	return item, nil
}

// Update patches the tile at the coordinate.
func (c *Coordinator) Update(ctx context.Context, coordID string, req UpdateRequest) (domain.Item, error) {
	existing, ok := c.store.Item(coordID)
	if !ok {
		return domain.Item{}, domain.ErrNotFound.New("no cached item at %s", coordID)
	}

	snap := c.takeSnapshot(coordID)
	release := c.acquirePending(coordID)
	defer release()

	if c.optimisticEnabled() {
		optimistic := existing.Clone()
		applyPatch(&optimistic.Data, req)
		optimistic.State.Pending = true
		c.store.Dispatch(cache.UpdateItems{Items: map[string]domain.Item{coordID: optimistic}})
	}

	wire, err := c.server.UpdateItem(ctx, existing.Metadata.DBID, ports.UpdateItemRequest{
		Title:   req.Title,
		Content: req.Content,
		Preview: req.Preview,
		Link:    req.Link,
	})
	if err != nil {
		c.restore(snap)
		return domain.Item{}, domain.ErrServer.Wrap(err)
	}

	item, err := domain.ItemFromServer(*wire)
	if err != nil {
		c.restore(snap)
		return domain.Item{}, err
	}
	c.store.Dispatch(cache.UpdateItems{Items: map[string]domain.Item{item.Metadata.CoordID: item}})
	c.emit(domain.EventTileUpdated, item)
	return item, nil
}

// Delete removes the tile at the coordinate.
func (c *Coordinator) Delete(ctx context.Context, coordID string) error {
	existing, ok := c.store.Item(coordID)
	if !ok {
		return domain.ErrNotFound.New("no cached item at %s", coordID)
	}

	snap := c.takeSnapshot(coordID)
	release := c.acquirePending(coordID)
	defer release()

	if c.optimisticEnabled() {
		c.store.Dispatch(cache.RemoveItem{CoordID: coordID})
	}

	if err := c.server.DeleteItem(ctx, existing.Metadata.DBID); err != nil {
		c.restore(snap)
		return domain.ErrServer.Wrap(err)
	}

	c.store.Dispatch(cache.RemoveItem{CoordID: coordID})
	c.emit(domain.EventTileDeleted, existing)
	return nil
}

// Move relocates the tile to a free coordinate. The server call is an update
// of the tile's coordinates; descendants are not traversed locally, the next
// refetch reconciles them.
func (c *Coordinator) Move(ctx context.Context, fromCoordID, toCoordID string) (domain.Item, error) {
	toCoord, err := domain.ParseID(toCoordID)
	if err != nil {
		return domain.Item{}, err
	}
	existing, ok := c.store.Item(fromCoordID)
	if !ok {
		return domain.Item{}, domain.ErrNotFound.New("no cached item at %s", fromCoordID)
	}
	if _, occupied := c.store.Item(toCoord.ID()); occupied {
		return domain.Item{}, domain.ErrServer.New("coordinate %s already occupied", toCoord.ID())
	}

	snap := c.takeSnapshot(fromCoordID, toCoord.ID())
	release := c.acquirePending(fromCoordID, toCoord.ID())
	defer release()

	if c.optimisticEnabled() {
		moved := existing.Clone()
		moved.Metadata.Coord = toCoord
		moved.Metadata.CoordID = toCoord.ID()
		moved.Metadata.Depth = toCoord.Depth()
		moved.State.Pending = true
		c.store.Dispatch(cache.RemoveItem{CoordID: fromCoordID})
		c.store.Dispatch(cache.UpdateItems{Items: map[string]domain.Item{moved.Metadata.CoordID: moved}})
	}

	coords := toCoord.ID()
	wire, err := c.server.UpdateItem(ctx, existing.Metadata.DBID, ports.UpdateItemRequest{
		Coordinates: &coords,
	})
	if err != nil {
		c.restore(snap)
		return domain.Item{}, domain.ErrServer.Wrap(err)
	}

	item, err := domain.ItemFromServer(*wire)
	if err != nil {
		c.restore(snap)
		return domain.Item{}, err
	}
	c.store.Dispatch(cache.RemoveItem{CoordID: fromCoordID})
	c.store.Dispatch(cache.UpdateItems{Items: map[string]domain.Item{item.Metadata.CoordID: item}})
	c.emit(domain.EventTileUpdated, item)
	return item, nil
}

// UpdateVisibility updates a subtree's visibility in one server call. No
// local traversal: the coordinator awaits the result, then invalidates and
// reloads the affected region instead of re-deriving descendant visibility.
func (c *Coordinator) UpdateVisibility(ctx context.Context, coordID, visibility string) error {
	existing, ok := c.store.Item(coordID)
	if !ok {
		return domain.ErrNotFound.New("no cached item at %s", coordID)
	}

	release := c.acquirePending(coordID)
	defer release()

	if err := c.server.UpdateVisibilityWithDescendants(ctx, existing.Metadata.DBID, visibility); err != nil {
		return domain.ErrServer.Wrap(err)
	}

	c.store.Dispatch(cache.InvalidateRegion{CenterCoordID: coordID})
	if err := c.loader.LoadRegion(ctx, coordID, c.store.Config().MaxDepth); err != nil {
		c.log.Warn("region reload after visibility change failed",
			zap.String("center", coordID), zap.Error(err))
	}
	return nil
}

func applyPatch(data *domain.ItemData, req UpdateRequest) {
	if req.Title != nil {
		data.Title = *req.Title
	}
	if req.Content != nil {
		data.Content = *req.Content
	}
	if req.Preview != nil {
		data.Preview = *req.Preview
	}
	if req.Link != nil {
		data.Link = *req.Link
	}
}
