package domain

import (
	"strconv"
	"strings"
)

// Direction is a single step in a coordinate path.
// Positive 1-6 address structural children (decomposition), 0 addresses the
// composition container, and -1..-6 address composed children directly
// beneath a container.
type Direction int

const (
	// MinDirection is the lowest valid path entry.
	MinDirection Direction = -6
	// MaxDirection is the highest valid path entry.
	MaxDirection Direction = 6
	// Composition is the path entry addressing a tile's composition container.
	Composition Direction = 0
)

// StructuralDirections enumerates the six structural child positions.
var StructuralDirections = []Direction{1, 2, 3, 4, 5, 6}

// IsStructural reports whether d addresses a structural child.
func (d Direction) IsStructural() bool {
	return d >= 1 && d <= 6
}

// IsComposed reports whether d addresses a composed child.
func (d Direction) IsComposed() bool {
	return d >= -6 && d <= -1
}

// Coordinate addresses a tile within one owner/group map. The empty path is
// the map root. Two disjoint numeric ranges share one path encoding so a
// single scheme expresses both decomposition and composition without a
// second tree.
type Coordinate struct {
	OwnerID string
	GroupID string
	Path    []Direction
}

// NewCoordinate builds a coordinate, copying the path.
func NewCoordinate(ownerID, groupID string, path ...Direction) Coordinate {
	return Coordinate{OwnerID: ownerID, GroupID: groupID, Path: clonePath(path)}
}

// ParseID parses a coordinate id of the form "<ownerId>,<groupId>[:<path>]"
// where path is a comma-separated list of signed integers in [-6,6].
// A negative entry must immediately follow a 0 entry; the parser enforces
// this centrally so every Coordinate in the system satisfies the invariant
// by construction.
func ParseID(id string) (Coordinate, error) {
	head, pathPart, hasPath := strings.Cut(id, ":")

	ownerID, groupID, ok := strings.Cut(head, ",")
	if !ok || ownerID == "" || groupID == "" {
		return Coordinate{}, ErrFormat.New("missing owner or group in %q", id)
	}
	if strings.Contains(groupID, ",") {
		return Coordinate{}, ErrFormat.New("unexpected comma in group of %q", id)
	}

	coord := Coordinate{OwnerID: ownerID, GroupID: groupID}
	if !hasPath {
		return coord, nil
	}
	if pathPart == "" {
		return Coordinate{}, ErrFormat.New("empty path after ':' in %q", id)
	}

	entries := strings.Split(pathPart, ",")
	coord.Path = make([]Direction, 0, len(entries))
	for i, entry := range entries {
		n, err := strconv.Atoi(entry)
		if err != nil {
			return Coordinate{}, ErrFormat.New("path entry %q in %q is not an integer", entry, id)
		}
		d := Direction(n)
		if d < MinDirection || d > MaxDirection {
			return Coordinate{}, ErrFormat.New("path entry %d in %q outside [-6,6]", n, id)
		}
		if d.IsComposed() && (i == 0 || coord.Path[i-1] != Composition) {
			return Coordinate{}, ErrFormat.New("composed entry %d in %q must follow a 0 entry", n, id)
		}
		coord.Path = append(coord.Path, d)
	}

	return coord, nil
}

// MustParseID parses a coordinate id and panics on malformed input.
// For literals in tests and seed data.
func MustParseID(id string) Coordinate {
	coord, err := ParseID(id)
	if err != nil {
		panic(err)
	}
	return coord
}

// ID returns the canonical text form. ParseID(c.ID()) round-trips for every
// valid coordinate.
func (c Coordinate) ID() string {
	var b strings.Builder
	b.WriteString(c.OwnerID)
	b.WriteByte(',')
	b.WriteString(c.GroupID)
	for i, d := range c.Path {
		if i == 0 {
			b.WriteByte(':')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(int(d)))
	}
	return b.String()
}

// Depth returns the path length.
func (c Coordinate) Depth() int {
	return len(c.Path)
}

// IsRoot reports whether the coordinate addresses the map root.
func (c Coordinate) IsRoot() bool {
	return len(c.Path) == 0
}

// Parent returns the coordinate with the last path entry dropped.
// ok is false for the root, which has no parent.
func (c Coordinate) Parent() (parent Coordinate, ok bool) {
	if c.IsRoot() {
		return Coordinate{}, false
	}
	return Coordinate{
		OwnerID: c.OwnerID,
		GroupID: c.GroupID,
		Path:    clonePath(c.Path[:len(c.Path)-1]),
	}, true
}

// Child returns the coordinate one step below c in the given direction.
// A composed direction is only valid directly beneath a composition
// container.
func (c Coordinate) Child(d Direction) (Coordinate, error) {
	if d < MinDirection || d > MaxDirection {
		return Coordinate{}, ErrFormat.New("direction %d outside [-6,6]", d)
	}
	if d.IsComposed() && (c.IsRoot() || c.Path[len(c.Path)-1] != Composition) {
		return Coordinate{}, ErrFormat.New("composed direction %d only valid under a composition container", d)
	}
	return Coordinate{
		OwnerID: c.OwnerID,
		GroupID: c.GroupID,
		Path:    append(clonePath(c.Path), d),
	}, nil
}

// Composition returns the addressable container for c's composed children.
func (c Coordinate) Composition() Coordinate {
	return Coordinate{
		OwnerID: c.OwnerID,
		GroupID: c.GroupID,
		Path:    append(clonePath(c.Path), Composition),
	}
}

// Siblings enumerates the structural positions sharing c's parent and depth,
// excluding c's own position when it occupies one of them. The root has no
// siblings.
func (c Coordinate) Siblings() []Coordinate {
	parent, ok := c.Parent()
	if !ok {
		return nil
	}
	own := c.Path[len(c.Path)-1]
	siblings := make([]Coordinate, 0, len(StructuralDirections))
	for _, d := range StructuralDirections {
		if d == own {
			continue
		}
		sibling, err := parent.Child(d)
		if err != nil {
			continue
		}
		siblings = append(siblings, sibling)
	}
	return siblings
}

// IsDescendantOf reports whether c lives strictly below ancestor in the same
// owner/group map.
func (c Coordinate) IsDescendantOf(ancestor Coordinate) bool {
	if !c.SameMap(ancestor) || len(c.Path) <= len(ancestor.Path) {
		return false
	}
	for i, d := range ancestor.Path {
		if c.Path[i] != d {
			return false
		}
	}
	return true
}

// SameMap reports whether two coordinates share an owner/group map.
func (c Coordinate) SameMap(other Coordinate) bool {
	return c.OwnerID == other.OwnerID && c.GroupID == other.GroupID
}

// Equal reports whether two coordinates address the same tile.
func (c Coordinate) Equal(other Coordinate) bool {
	if !c.SameMap(other) || len(c.Path) != len(other.Path) {
		return false
	}
	for i, d := range c.Path {
		if other.Path[i] != d {
			return false
		}
	}
	return true
}

// WithinRegion reports whether c falls inside the region of maxDepth
// generations around center: same map, center's path prefixes c's, and the
// relative depth does not exceed maxDepth.
func (c Coordinate) WithinRegion(center Coordinate, maxDepth int) bool {
	if c.Equal(center) {
		return true
	}
	return c.IsDescendantOf(center) && c.Depth()-center.Depth() <= maxDepth
}

// DepthDelta returns c's depth minus other's depth.
func (c Coordinate) DepthDelta(other Coordinate) int {
	return c.Depth() - other.Depth()
}

// DepthFromID returns the path length of a coordinate id.
func DepthFromID(id string) (int, error) {
	coord, err := ParseID(id)
	if err != nil {
		return 0, err
	}
	return coord.Depth(), nil
}

// ParentFromID returns the parent coordinate id. ok is false for a root id.
func ParentFromID(id string) (parentID string, ok bool, err error) {
	coord, err := ParseID(id)
	if err != nil {
		return "", false, err
	}
	parent, ok := coord.Parent()
	if !ok {
		return "", false, nil
	}
	return parent.ID(), true, nil
}

// SiblingsFromID returns the structural sibling ids of a coordinate id.
func SiblingsFromID(id string) ([]string, error) {
	coord, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	siblings := coord.Siblings()
	ids := make([]string, len(siblings))
	for i, s := range siblings {
		ids[i] = s.ID()
	}
	return ids, nil
}

// CompositionFromID returns the composition container id for a coordinate id.
func CompositionFromID(id string) (string, error) {
	coord, err := ParseID(id)
	if err != nil {
		return "", err
	}
	return coord.Composition().ID(), nil
}

func clonePath(path []Direction) []Direction {
	if len(path) == 0 {
		return nil
	}
	out := make([]Direction, len(path))
	copy(out, path)
	return out
}
