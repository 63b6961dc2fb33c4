package domain

import "testing"

func TestItemFromServer(t *testing.T) {
	wire := ServerItem{
		ID:          "42",
		Coordinates: "1,0:2,3",
		Depth:       99, // deliberately wrong; re-derived from the path
		Title:       "tile",
		Content:     "body",
		ParentID:    "41",
		OwnerID:     "1",
	}

	item, err := ItemFromServer(wire)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Metadata.CoordID != "1,0:2,3" {
		t.Errorf("coord id = %q", item.Metadata.CoordID)
	}
	if item.Metadata.Depth != 2 {
		t.Errorf("depth = %d, want 2 (re-derived from path)", item.Metadata.Depth)
	}
	if item.Metadata.DBID != "42" || item.Metadata.ParentID != "41" {
		t.Errorf("ids not carried over: %+v", item.Metadata)
	}
	if item.Data.Title != "tile" || item.Data.Content != "body" {
		t.Errorf("data not carried over: %+v", item.Data)
	}
}

func TestItemFromServerMalformed(t *testing.T) {
	if _, err := ItemFromServer(ServerItem{ID: "1", Coordinates: "bogus"}); err == nil {
		t.Fatal("expected error for malformed coordinates")
	}

	if _, err := ItemsFromServer([]ServerItem{
		{ID: "1", Coordinates: "1,0"},
		{ID: "2", Coordinates: "1,0:9"},
	}); err == nil {
		t.Fatal("expected whole batch to fail on one malformed coordinate")
	}
}

func TestItemCloneDetachesPath(t *testing.T) {
	original, err := ItemFromServer(ServerItem{ID: "1", Coordinates: "1,0:1,2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clone := original.Clone()
	clone.Metadata.Coord.Path[0] = 6

	if original.Metadata.Coord.Path[0] != 1 {
		t.Error("mutating the clone's path changed the original")
	}
}
