package cache

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"hexmap/internal/domain"
)

func testItem(coordID, dbID string) domain.Item {
	coord := domain.MustParseID(coordID)
	return domain.Item{
		Metadata: domain.ItemMetadata{
			DBID:    dbID,
			CoordID: coord.ID(),
			Coord:   coord,
			Depth:   coord.Depth(),
			OwnerID: coord.OwnerID,
		},
		Data: domain.ItemData{Title: "tile " + coordID},
	}
}

func regionPayload() []domain.Item {
	return []domain.Item{
		testItem("1,0", "d0"),
		testItem("1,0:1", "d1"),
		testItem("1,0:2", "d2"),
		testItem("1,0:1,1", "d11"),
	}
}

func TestLoadRegionMergesAndRecordsMetadata(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.Dispatch(LoadRegion{Items: regionPayload(), CenterCoordID: "1,0", MaxDepth: 2})

	if s.ItemCount() != 4 {
		t.Fatalf("item count = %d, want 4", s.ItemCount())
	}
	for _, want := range regionPayload() {
		got, ok := s.Item(want.Metadata.CoordID)
		if !ok {
			t.Fatalf("item %s missing", want.Metadata.CoordID)
		}
		if got.Metadata.DBID != want.Metadata.DBID {
			t.Errorf("item %s has db id %s", want.Metadata.CoordID, got.Metadata.DBID)
		}
	}

	meta, ok := s.RegionMeta("1,0")
	if !ok {
		t.Fatal("region metadata missing")
	}
	if meta.MaxDepth != 2 || meta.CenterCoordID != "1,0" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if time.Since(meta.LoadedAt) > time.Second {
		t.Errorf("loadedAt not recent: %v", meta.LoadedAt)
	}
}

func TestLoadRegionIdempotent(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.Dispatch(LoadRegion{Items: regionPayload(), CenterCoordID: "1,0", MaxDepth: 2})
	before := s.Items()

	s.Dispatch(LoadRegion{Items: regionPayload(), CenterCoordID: "1,0", MaxDepth: 2})
	after := s.Items()

	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("replaying the same payload changed items:\n%s", diff)
	}
}

func TestPutItemNormalizesKeyAndDepth(t *testing.T) {
	s := NewStore(DefaultConfig())

	item := testItem("1,0:1,2", "d")
	item.Metadata.CoordID = "wrong-key"
	item.Metadata.Depth = 99
	s.Dispatch(UpdateItems{Items: map[string]domain.Item{"also-wrong": item}})

	got, ok := s.Item("1,0:1,2")
	if !ok {
		t.Fatal("item not stored under its own coordinate id")
	}
	if got.Metadata.CoordID != "1,0:1,2" || got.Metadata.Depth != 2 {
		t.Errorf("not normalized: %+v", got.Metadata)
	}
	if _, ok := s.Item("wrong-key"); ok {
		t.Error("item also stored under the producer's key")
	}
}

func TestLoadItemChildrenLeavesRegionMetadataAlone(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.Dispatch(LoadItemChildren{Items: regionPayload(), ParentCoordID: "1,0"})

	if s.ItemCount() != 4 {
		t.Fatalf("item count = %d, want 4", s.ItemCount())
	}
	if _, ok := s.RegionMeta("1,0"); ok {
		t.Error("children load must not create region metadata")
	}
}

func TestRemoveItemClearsAllTraces(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Dispatch(LoadRegion{Items: regionPayload(), CenterCoordID: "1,0:1", MaxDepth: 1})
	s.Dispatch(SetExpandedItems{IDs: []string{"1,0:1", "1,0:2"}})

	s.Dispatch(RemoveItem{CoordID: "1,0:1"})

	if _, ok := s.Item("1,0:1"); ok {
		t.Error("item not removed")
	}
	if _, ok := s.RegionMeta("1,0:1"); ok {
		t.Error("region entry keyed at the item not removed")
	}
	if diff := cmp.Diff([]string{"1,0:2"}, s.ExpandedItemIDs()); diff != "" {
		t.Errorf("expansion set:\n%s", diff)
	}
}

func TestToggleItemExpansion(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.Dispatch(ToggleItemExpansion{ID: "1,0:1"})
	if diff := cmp.Diff([]string{"1,0:1"}, s.ExpandedItemIDs()); diff != "" {
		t.Fatalf("after first toggle:\n%s", diff)
	}

	s.Dispatch(ToggleItemExpansion{ID: "1,0:1"})
	if got := s.ExpandedItemIDs(); len(got) != 0 {
		t.Fatalf("after second toggle: %v", got)
	}
}

func TestInvalidateKeepsItems(t *testing.T) {
	s := NewStore(DefaultConfig())
	s.Dispatch(LoadRegion{Items: regionPayload(), CenterCoordID: "1,0", MaxDepth: 2})

	s.Dispatch(InvalidateRegion{CenterCoordID: "1,0"})
	if _, ok := s.RegionMeta("1,0"); ok {
		t.Error("region metadata not cleared")
	}
	if s.ItemCount() != 4 {
		t.Error("items must remain for lazy refresh")
	}

	s.Dispatch(LoadRegion{Items: nil, CenterCoordID: "1,0", MaxDepth: 2})
	s.Dispatch(InvalidateAll{})
	if len(s.Regions()) != 0 {
		t.Error("invalidateAll left region metadata behind")
	}
	if s.ItemCount() != 4 {
		t.Error("invalidateAll must not evict items")
	}
}

func TestRestoreRegionMetaWritesEntryVerbatim(t *testing.T) {
	s := NewStore(DefaultConfig())
	meta := domain.RegionMetadata{
		CenterCoordID: "1,0:1",
		MaxDepth:      2,
		LoadedAt:      time.Unix(5000, 0),
	}

	s.Dispatch(RestoreRegionMeta{Meta: meta})

	got, ok := s.RegionMeta("1,0:1")
	if !ok {
		t.Fatal("region entry not written")
	}
	if diff := cmp.Diff(meta, got); diff != "" {
		t.Errorf("entry not verbatim:\n%s", diff)
	}
}

func TestSetLoadingAndError(t *testing.T) {
	s := NewStore(DefaultConfig())

	s.Dispatch(SetLoading{Loading: true})
	if !s.IsLoading() {
		t.Error("loading flag not set")
	}
	s.Dispatch(SetLoading{Loading: false})
	if s.IsLoading() {
		t.Error("loading flag not cleared")
	}

	loadErr := errors.New("boom")
	s.Dispatch(SetError{Err: loadErr})
	if !errors.Is(s.Err(), loadErr) {
		t.Error("error not recorded")
	}
	s.Dispatch(SetError{Err: nil})
	if s.Err() != nil {
		t.Error("error not cleared")
	}
}

func TestUpdateConfigPartial(t *testing.T) {
	s := NewStore(DefaultConfig())
	maxAge := 1 * time.Minute

	s.Dispatch(UpdateConfig{Patch: ConfigPatch{MaxAge: &maxAge}})

	cfg := s.Config()
	if cfg.MaxAge != maxAge {
		t.Errorf("maxAge = %v, want %v", cfg.MaxAge, maxAge)
	}
	if cfg.MaxDepth != DefaultConfig().MaxDepth {
		t.Errorf("untouched field changed: %d", cfg.MaxDepth)
	}
}

func TestLastUpdatedStrictlyIncreases(t *testing.T) {
	s := NewStore(DefaultConfig())
	fixed := time.Unix(1000, 0)
	s.now = func() time.Time { return fixed } // frozen clock

	var prev time.Time
	for i := 0; i < 5; i++ {
		s.Dispatch(SetCenter{CoordID: fmt.Sprintf("1,%d", i)})
		got := s.LastUpdated()
		if !got.After(prev) {
			t.Fatalf("lastUpdated did not increase: %v -> %v", prev, got)
		}
		prev = got
	}
}
