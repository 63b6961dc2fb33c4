package cache

import "hexmap/internal/domain"

// Action is the closed set of state transitions. All cache mutation funnels
// through Store.Dispatch with one of these variants; nothing else writes
// state.
type Action interface {
	isAction()
}

// LoadRegion merges a fetched subtree and records region metadata for its
// center.
type LoadRegion struct {
	Items         []domain.Item
	CenterCoordID string
	MaxDepth      int
}

// LoadItemChildren merges an incremental one-generation fetch without
// touching region metadata.
type LoadItemChildren struct {
	Items         []domain.Item
	ParentCoordID string
}

// UpdateItems merges a keyed batch of items.
type UpdateItems struct {
	Items map[string]domain.Item
}

// RemoveItem deletes an item and any region metadata keyed at its
// coordinate.
type RemoveItem struct {
	CoordID string
}

// SetCenter commits a new current center.
type SetCenter struct {
	CoordID string
}

// SetExpandedItems replaces the expansion set.
type SetExpandedItems struct {
	IDs []string
}

// ToggleItemExpansion flips one id in the expansion set.
type ToggleItemExpansion struct {
	ID string
}

// SetLoading flags an in-flight load.
type SetLoading struct {
	Loading bool
}

// SetError records the last load error; nil clears it.
type SetError struct {
	Err error
}

// RestoreRegionMeta writes a region entry back verbatim, original timestamp
// included. Mutation rollback uses it to undo the metadata side of an
// optimistic RemoveItem.
type RestoreRegionMeta struct {
	Meta domain.RegionMetadata
}

// InvalidateRegion clears one region's metadata. Items remain for lazy
// refresh.
type InvalidateRegion struct {
	CenterCoordID string
}

// InvalidateAll clears all region metadata. Items remain.
type InvalidateAll struct{}

// UpdateConfig applies a partial config change.
type UpdateConfig struct {
	Patch ConfigPatch
}

func (LoadRegion) isAction()          {}
func (LoadItemChildren) isAction()    {}
func (UpdateItems) isAction()         {}
func (RemoveItem) isAction()          {}
func (SetCenter) isAction()           {}
func (SetExpandedItems) isAction()    {}
func (ToggleItemExpansion) isAction() {}
func (SetLoading) isAction()          {}
func (SetError) isAction()            {}
func (RestoreRegionMeta) isAction()   {}
func (InvalidateRegion) isAction()    {}
func (InvalidateAll) isAction()       {}
func (UpdateConfig) isAction()        {}
