package cache

import (
	"sync"
	"time"

	"hexmap/internal/domain"
)

// State is the normalized cache: items keyed by their own coordinate id,
// region freshness metadata, the expansion set, and configuration.
type State struct {
	ItemsByID       map[string]domain.Item
	CurrentCenter   string
	ExpandedItemIDs []string
	RegionMetadata  map[string]domain.RegionMetadata
	IsLoading       bool
	Err             error
	LastUpdated     time.Time
	Config          Config
}

// Store owns the cache state. Dispatch serializes every transition behind
// one lock, so the reducer runs single-writer without the callers
// coordinating; reads copy out what they return.
type Store struct {
	mu    sync.RWMutex
	state State
	memo  regionMemo
	now   func() time.Time
}

// NewStore creates an empty cache with the given configuration.
func NewStore(cfg Config) *Store {
	return &Store{
		state: State{
			ItemsByID:      make(map[string]domain.Item),
			RegionMetadata: make(map[string]domain.RegionMetadata),
			Config:         cfg,
		},
		now: time.Now,
	}
}

// Dispatch applies one action.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reduce(&s.state, action, s.now())
}

// reduce is the single transition function over the closed action set.
// It runs under the store lock and nothing else mutates state.
func reduce(s *State, action Action, now time.Time) {
	switch a := action.(type) {
	case LoadRegion:
		mergeItems(s, a.Items)
		s.RegionMetadata[a.CenterCoordID] = domain.RegionMetadata{
			CenterCoordID: a.CenterCoordID,
			MaxDepth:      a.MaxDepth,
			LoadedAt:      now,
		}
		touch(s, now)

	case LoadItemChildren:
		mergeItems(s, a.Items)
		touch(s, now)

	case UpdateItems:
		for _, item := range a.Items {
			putItem(s, item)
		}
		touch(s, now)

	case RemoveItem:
		delete(s.ItemsByID, a.CoordID)
		delete(s.RegionMetadata, a.CoordID)
		s.ExpandedItemIDs = removeID(s.ExpandedItemIDs, a.CoordID)
		touch(s, now)

	case SetCenter:
		s.CurrentCenter = a.CoordID
		touch(s, now)

	case SetExpandedItems:
		s.ExpandedItemIDs = append([]string(nil), a.IDs...)
		touch(s, now)

	case ToggleItemExpansion:
		if containsID(s.ExpandedItemIDs, a.ID) {
			s.ExpandedItemIDs = removeID(s.ExpandedItemIDs, a.ID)
		} else {
			s.ExpandedItemIDs = append(s.ExpandedItemIDs, a.ID)
		}
		touch(s, now)

	case SetLoading:
		s.IsLoading = a.Loading
		touch(s, now)

	case SetError:
		s.Err = a.Err
		touch(s, now)

	case RestoreRegionMeta:
		s.RegionMetadata[a.Meta.CenterCoordID] = a.Meta
		touch(s, now)

	case InvalidateRegion:
		delete(s.RegionMetadata, a.CenterCoordID)
		touch(s, now)

	case InvalidateAll:
		s.RegionMetadata = make(map[string]domain.RegionMetadata)
		touch(s, now)

	case UpdateConfig:
		s.Config = s.Config.apply(a.Patch)
		touch(s, now)
	}
}

// mergeItems is an idempotent union keyed by coordinate id; replaying the
// same payload changes nothing but freshness timestamps.
func mergeItems(s *State, items []domain.Item) {
	for _, item := range items {
		putItem(s, item)
	}
}

// putItem normalizes the key from the coordinate itself so the itemsById
// invariant (key == the item's own coordinate id, depth == path length)
// holds regardless of the producer.
func putItem(s *State, item domain.Item) {
	normalized := item.Clone()
	normalized.Metadata.CoordID = normalized.Metadata.Coord.ID()
	normalized.Metadata.Depth = normalized.Metadata.Coord.Depth()
	s.ItemsByID[normalized.Metadata.CoordID] = normalized
}

// touch advances LastUpdated, strictly, even under a non-monotonic clock.
func touch(s *State, now time.Time) {
	if !now.After(s.LastUpdated) {
		now = s.LastUpdated.Add(time.Nanosecond)
	}
	s.LastUpdated = now
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Item returns one cached item by coordinate id.
func (s *Store) Item(coordID string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.state.ItemsByID[coordID]
	if !ok {
		return domain.Item{}, false
	}
	return item.Clone(), true
}

// ItemByDBID scans cached items for a server-assigned opaque id.
func (s *Store) ItemByDBID(dbID string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.state.ItemsByID {
		if item.Metadata.DBID == dbID {
			return item.Clone(), true
		}
	}
	return domain.Item{}, false
}

// Items returns a copy of the whole item map.
func (s *Store) Items() map[string]domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Item, len(s.state.ItemsByID))
	for id, item := range s.state.ItemsByID {
		out[id] = item.Clone()
	}
	return out
}

// ItemCount returns the number of cached items.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.ItemsByID)
}

// CurrentCenter returns the committed center coordinate id.
func (s *Store) CurrentCenter() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentCenter
}

// ExpandedItemIDs returns a copy of the expansion set.
func (s *Store) ExpandedItemIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.state.ExpandedItemIDs...)
}

// RegionMeta returns the metadata recorded for a region center.
func (s *Store) RegionMeta(centerCoordID string) (domain.RegionMetadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	meta, ok := s.state.RegionMetadata[centerCoordID]
	return meta, ok
}

// Regions returns a copy of all region metadata entries.
func (s *Store) Regions() []domain.RegionMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RegionMetadata, 0, len(s.state.RegionMetadata))
	for _, meta := range s.state.RegionMetadata {
		out = append(out, meta)
	}
	return out
}

// Config returns the current cache configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Config
}

// IsLoading reports whether a load is flagged in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoading
}

// Err returns the last recorded load error.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Err
}

// LastUpdated returns the time of the last accepted mutation.
func (s *Store) LastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.LastUpdated
}
