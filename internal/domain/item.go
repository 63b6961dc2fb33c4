package domain

import "time"

// Visibility values accepted by the server contract.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// ItemMetadata identifies a tile and its place in the hierarchy.
type ItemMetadata struct {
	DBID     string // server-assigned opaque id
	CoordID  string // canonical coordinate id, key in the cache
	ParentID string // DBID of the parent tile, empty for roots
	Coord    Coordinate
	Depth    int
	OwnerID  string
}

// ItemData holds the user-visible content of a tile.
type ItemData struct {
	Title   string
	Content string
	Preview string
	Link    string
	Color   string
}

// ItemState carries transient UI flags. The engine sets Pending while an
// optimistic mutation awaits server confirmation; everything else is
// consumed, not owned, by this core.
type ItemState struct {
	Pending  bool
	Selected bool
}

// Item is one cached tile.
type Item struct {
	Metadata ItemMetadata
	Data     ItemData
	State    ItemState
}

// Clone returns a deep copy, detaching the coordinate path.
func (i Item) Clone() Item {
	out := i
	out.Metadata.Coord = Coordinate{
		OwnerID: i.Metadata.Coord.OwnerID,
		GroupID: i.Metadata.Coord.GroupID,
		Path:    clonePath(i.Metadata.Coord.Path),
	}
	return out
}

// RegionMetadata records that a subtree around a center was fetched to a
// given depth at a given time.
type RegionMetadata struct {
	CenterCoordID string
	MaxDepth      int
	LoadedAt      time.Time
}

// SyncStatus is the sync engine's externally visible state.
type SyncStatus struct {
	IsOnline   bool
	IsSyncing  bool
	LastSyncAt time.Time
	NextSyncAt time.Time
	SyncCount  int
	ErrorCount int
	LastError  string
}

// ServerItem is the wire shape of a tile as the server service returns it.
type ServerItem struct {
	ID          string
	Coordinates string
	Depth       int
	Title       string
	Content     string
	Preview     string
	Link        string
	ParentID    string
	ItemType    string
	OwnerID     string
	Visibility  string
}

// ItemFromServer converts a wire item into a cached item. The coordinate id
// is re-derived from the parsed coordinates and depth from the path length,
// so the cache invariants hold regardless of what the server sent.
func ItemFromServer(wire ServerItem) (Item, error) {
	coord, err := ParseID(wire.Coordinates)
	if err != nil {
		return Item{}, err
	}
	return Item{
		Metadata: ItemMetadata{
			DBID:     wire.ID,
			CoordID:  coord.ID(),
			ParentID: wire.ParentID,
			Coord:    coord,
			Depth:    coord.Depth(),
			OwnerID:  wire.OwnerID,
		},
		Data: ItemData{
			Title:   wire.Title,
			Content: wire.Content,
			Preview: wire.Preview,
			Link:    wire.Link,
		},
	}, nil
}

// ItemsFromServer converts a batch, rejecting the whole batch on the first
// malformed coordinate.
func ItemsFromServer(wire []ServerItem) ([]Item, error) {
	items := make([]Item, 0, len(wire))
	for _, w := range wire {
		item, err := ItemFromServer(w)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
