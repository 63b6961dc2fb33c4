package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hexmap/internal/domain"
)

func TestItemsWithinRegion(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Dispatch(LoadRegion{Items: []domain.Item{
		testItem("1,0", "d0"),
		testItem("1,0:1", "d1"),
		testItem("1,0:1,1", "d11"),
		testItem("1,0:1,1,2", "d112"),
		testItem("1,0:2", "d2"),
	}, CenterCoordID: "1,0", MaxDepth: 3})

	items, err := s.ItemsWithinRegion("1,0:1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, item := range items {
		got = append(got, item.Metadata.CoordID)
	}
	want := []string{"1,0:1", "1,0:1,1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("region membership:\n%s", diff)
	}
}

func TestItemsWithinRegionFullChildGeneration(t *testing.T) {
	s := NewStore(DefaultConfig())
	items := []domain.Item{testItem("1,0:1", "center")}
	for d := 1; d <= 6; d++ {
		coordID := fmt.Sprintf("1,0:1,%d", d)
		items = append(items, testItem(coordID, "child"+coordID))
	}
	s.Dispatch(LoadRegion{Items: items, CenterCoordID: "1,0:1", MaxDepth: 1})

	within, err := s.ItemsWithinRegion("1,0:1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(within) != 7 {
		t.Errorf("center plus six children = %d items, want 7", len(within))
	}

	centerOnly, err := s.ItemsWithinRegion("1,0:1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(centerOnly) != 1 || centerOnly[0].Metadata.CoordID != "1,0:1" {
		t.Errorf("maxDepth 0 must yield only the center, got %v", centerOnly)
	}
}

func TestItemsWithinRegionRejectsMalformedCenter(t *testing.T) {
	s := NewStore(DefaultConfig())
	if _, err := s.ItemsWithinRegion("bogus", 1); err == nil {
		t.Fatal("expected a format error")
	}
}

func TestRegionMemoInvalidatedByMutation(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Dispatch(LoadRegion{Items: []domain.Item{testItem("1,0", "d0")}, CenterCoordID: "1,0", MaxDepth: 1})

	first, err := s.ItemsWithinRegion("1,0", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("len = %d, want 1", len(first))
	}

	s.Dispatch(UpdateItems{Items: map[string]domain.Item{"1,0:1": testItem("1,0:1", "d1")}})

	second, err := s.ItemsWithinRegion("1,0", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 2 {
		t.Errorf("memo served a stale result after mutation: %d items", len(second))
	}
}

func TestRegionMemoBoundedOldestFirst(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Dispatch(LoadRegion{Items: []domain.Item{testItem("1,0", "d0")}, CenterCoordID: "1,0", MaxDepth: 1})

	for depth := 1; depth <= regionMemoLimit+3; depth++ {
		if _, err := s.ItemsWithinRegion("1,0", depth); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := s.memo.size(); got != regionMemoLimit {
		t.Errorf("memo size = %d, want %d", got, regionMemoLimit)
	}
	// The oldest keys were evicted; the newest survive.
	checksum := s.stateChecksum()
	if _, ok := s.memo.get("1,0|1", checksum); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := s.memo.get(fmt.Sprintf("1,0|%d", regionMemoLimit+3), checksum); !ok {
		t.Error("newest entry should be memoized")
	}
}

func TestIsRegionLoadedAndStale(t *testing.T) {
	s := NewStore(DefaultConfig())
	base := time.Unix(10_000, 0)
	current := base
	s.now = func() time.Time { return current }

	s.Dispatch(LoadRegion{Items: []domain.Item{testItem("1,0", "d0")}, CenterCoordID: "1,0", MaxDepth: 2})

	if !s.IsRegionLoaded("1,0", 2) {
		t.Error("freshly loaded region should be loaded")
	}
	if !s.IsRegionLoaded("1,0", 1) {
		t.Error("shallower request should be covered")
	}
	if s.IsRegionLoaded("1,0", 3) {
		t.Error("deeper request must not be covered")
	}
	if s.IsRegionLoaded("1,0:1", 1) {
		t.Error("unknown center should not be loaded")
	}
	if s.IsRegionStale("1,0") {
		t.Error("fresh region should not be stale")
	}
	if !s.IsRegionStale("1,0:1") {
		t.Error("center with no entry is stale")
	}

	current = base.Add(DefaultConfig().MaxAge + time.Second)
	if s.IsRegionLoaded("1,0", 2) {
		t.Error("expired region should not be loaded")
	}
	if !s.IsRegionStale("1,0") {
		t.Error("expired region should be stale")
	}

	stale := s.StaleRegions()
	if len(stale) != 1 || stale[0].CenterCoordID != "1,0" {
		t.Errorf("stale regions = %+v", stale)
	}
}

func TestExpandedItemsWithinGeneration(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Dispatch(UpdateItems{Items: map[string]domain.Item{
		"1,0":       testItem("1,0", "d0"),
		"1,0:1":     testItem("1,0:1", "d1"),
		"1,0:1,1":   testItem("1,0:1,1", "d11"),
		"1,0:1,1,2": testItem("1,0:1,1,2", "d112"),
	}})
	s.Dispatch(SetExpandedItems{IDs: []string{"1,0", "1,0:1", "1,0:1,1", "1,0:1,1,2", "1,0:9"}})

	items, err := s.ExpandedItemsWithinGeneration("1,0:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []string
	for _, item := range items {
		got = append(got, item.Metadata.CoordID)
	}
	want := []string{"1,0", "1,0:1", "1,0:1,1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("within one generation:\n%s", diff)
	}
}
