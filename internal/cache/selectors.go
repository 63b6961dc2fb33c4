package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"strconv"
	"sync"

	"hexmap/internal/domain"
)

// regionMemoLimit bounds the derived region-items cache. A miss just falls
// back to full-state computation, so the memo is never correctness-critical.
const regionMemoLimit = 10

type memoEntry struct {
	key      string
	checksum [sha256.Size]byte
	items    []domain.Item
}

// regionMemo keeps the most recent region computations, evicted oldest-first
// on overflow.
type regionMemo struct {
	mu      sync.Mutex
	entries []memoEntry
}

func (m *regionMemo) get(key string, checksum [sha256.Size]byte) ([]domain.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.key == key && e.checksum == checksum {
			return append([]domain.Item(nil), e.items...), true
		}
	}
	return nil, false
}

func (m *regionMemo) put(key string, checksum [sha256.Size]byte, items []domain.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries {
		if e.key == key {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	m.entries = append(m.entries, memoEntry{key: key, checksum: checksum, items: items})
	if len(m.entries) > regionMemoLimit {
		m.entries = m.entries[len(m.entries)-regionMemoLimit:]
	}
}

func (m *regionMemo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// ItemsWithinRegion returns every cached item within maxDepth generations of
// the center: same owner/group, path prefixed by the center's, relative
// depth at most maxDepth. Results are memoized per (center, maxDepth)
// against a checksum of the item keys and LastUpdated.
func (s *Store) ItemsWithinRegion(centerCoordID string, maxDepth int) ([]domain.Item, error) {
	center, err := domain.ParseID(centerCoordID)
	if err != nil {
		return nil, err
	}

	key := centerCoordID + "|" + strconv.Itoa(maxDepth)
	checksum := s.stateChecksum()
	if items, ok := s.memo.get(key, checksum); ok {
		return items, nil
	}

	s.mu.RLock()
	items := make([]domain.Item, 0)
	for _, item := range s.state.ItemsByID {
		if item.Metadata.Coord.WithinRegion(center, maxDepth) {
			items = append(items, item.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].Metadata.CoordID < items[j].Metadata.CoordID
	})

	s.memo.put(key, checksum, items)
	return append([]domain.Item(nil), items...), nil
}

// stateChecksum hashes the sorted item keys plus LastUpdated; any accepted
// mutation changes it, invalidating memoized selections.
func (s *Store) stateChecksum() [sha256.Size]byte {
	s.mu.RLock()
	keys := make([]string, 0, len(s.state.ItemsByID))
	for id := range s.state.ItemsByID {
		keys = append(keys, id)
	}
	last := s.state.LastUpdated
	s.mu.RUnlock()

	sort.Strings(keys)
	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
	}
	var nanos [8]byte
	binary.BigEndian.PutUint64(nanos[:], uint64(last.UnixNano()))
	h.Write(nanos[:])

	var sum [sha256.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// IsRegionLoaded reports whether an unexpired region entry already covers
// the center at least maxDepth deep.
func (s *Store) IsRegionLoaded(centerCoordID string, maxDepth int) bool {
	s.mu.RLock()
	meta, ok := s.state.RegionMetadata[centerCoordID]
	maxAge := s.state.Config.MaxAge
	s.mu.RUnlock()
	if !ok || meta.MaxDepth < maxDepth {
		return false
	}
	return s.now().Sub(meta.LoadedAt) <= maxAge
}

// IsRegionStale reports whether a region entry is older than MaxAge.
// A center with no entry is stale.
func (s *Store) IsRegionStale(centerCoordID string) bool {
	s.mu.RLock()
	meta, ok := s.state.RegionMetadata[centerCoordID]
	maxAge := s.state.Config.MaxAge
	s.mu.RUnlock()
	if !ok {
		return true
	}
	return s.now().Sub(meta.LoadedAt) > maxAge
}

// StaleRegions returns the metadata of every region older than MaxAge.
func (s *Store) StaleRegions() []domain.RegionMetadata {
	s.mu.RLock()
	maxAge := s.state.Config.MaxAge
	regions := make([]domain.RegionMetadata, 0, len(s.state.RegionMetadata))
	for _, meta := range s.state.RegionMetadata {
		regions = append(regions, meta)
	}
	s.mu.RUnlock()

	now := s.now()
	stale := regions[:0]
	for _, meta := range regions {
		if now.Sub(meta.LoadedAt) > maxAge {
			stale = append(stale, meta)
		}
	}
	return stale
}

// ExpandedItemsWithinGeneration returns the expanded items whose relative
// depth from the center has magnitude at most one, in the center's map.
func (s *Store) ExpandedItemsWithinGeneration(centerCoordID string) ([]domain.Item, error) {
	center, err := domain.ParseID(centerCoordID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]domain.Item, 0, len(s.state.ExpandedItemIDs))
	for _, id := range s.state.ExpandedItemIDs {
		item, ok := s.state.ItemsByID[id]
		if !ok {
			continue
		}
		coord := item.Metadata.Coord
		if !coord.SameMap(center) {
			continue
		}
		if delta := coord.DepthDelta(center); delta < -1 || delta > 1 {
			continue
		}
		items = append(items, item.Clone())
	}
	return items, nil
}
