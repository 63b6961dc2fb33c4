package domain

// EventKind is the closed set of events this core emits.
type EventKind int

const (
	EventNavigation EventKind = iota
	EventTileCreated
	EventTileUpdated
	EventTileDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventNavigation:
		return "map.navigation"
	case EventTileCreated:
		return "map.tile_created"
	case EventTileUpdated:
		return "map.tile_updated"
	case EventTileDeleted:
		return "map.tile_deleted"
	default:
		return "map.unknown"
	}
}

// Event is one bus emission. Source tags the emitting component so
// subscribers can filter out their own events and avoid feedback loops.
type Event struct {
	Kind    EventKind
	Source  string
	CoordID string
	Item    *Item // set for tile events
}
