package bus

import (
	"testing"

	"hexmap/internal/domain"
)

func TestEmitDeliversInOrder(t *testing.T) {
	b := New()

	var got []string
	b.Subscribe(func(e domain.Event) { got = append(got, "first:"+e.CoordID) })
	b.Subscribe(func(e domain.Event) { got = append(got, "second:"+e.CoordID) })

	b.Emit(domain.Event{Kind: domain.EventNavigation, CoordID: "u1,0"})

	if len(got) != 2 || got[0] != "first:u1,0" || got[1] != "second:u1,0" {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()

	count := 0
	cancel := b.Subscribe(func(domain.Event) { count++ })

	b.Emit(domain.Event{Kind: domain.EventTileCreated})
	cancel()
	cancel() // idempotent
	b.Emit(domain.Event{Kind: domain.EventTileCreated})

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestSubscribeIgnoringFiltersSource(t *testing.T) {
	b := New()

	var got []string
	SubscribeIgnoring(b, "tui", func(e domain.Event) { got = append(got, e.Source) })

	b.Emit(domain.Event{Kind: domain.EventNavigation, Source: "tui"})
	b.Emit(domain.Event{Kind: domain.EventNavigation, Source: "mcp"})

	if len(got) != 1 || got[0] != "mcp" {
		t.Fatalf("expected only foreign event, got %v", got)
	}
}
