package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/ports"
)

// fakeServer implements the server contract over fixed payloads and counts
// calls. Methods the loader never touches come from the embedded nil
// interface and panic if reached.
type fakeServer struct {
	ports.ServerService

	mu          sync.Mutex
	generations []domain.ServerItem
	children    []domain.ServerItem
	err         error

	generationCalls atomic.Int32
	childrenCalls   atomic.Int32
	release         chan struct{} // when set, calls block until closed
}

func (f *fakeServer) GetItemWithGenerations(_ context.Context, req ports.GenerationsRequest) ([]domain.ServerItem, error) {
	f.generationCalls.Add(1)
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.generations, nil
}

func (f *fakeServer) FetchItemsForCoordinate(_ context.Context, coordID string) ([]domain.ServerItem, error) {
	f.childrenCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.children, nil
}

func wire(coordID, dbID string) domain.ServerItem {
	return domain.ServerItem{ID: dbID, Coordinates: coordID, Title: "tile " + coordID}
}

func TestLoadRegionFetchesAndMerges(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	srv := &fakeServer{generations: []domain.ServerItem{
		wire("1,0", "d0"),
		wire("1,0:1", "d1"),
	}}
	ld := New(nil, store, srv)

	if err := ld.LoadRegion(context.Background(), "1,0", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.ItemCount() != 2 {
		t.Errorf("item count = %d, want 2", store.ItemCount())
	}
	meta, ok := store.RegionMeta("1,0")
	if !ok || meta.MaxDepth != 2 {
		t.Errorf("region metadata: %+v, ok=%v", meta, ok)
	}
	if store.Err() != nil {
		t.Errorf("error should be cleared, got %v", store.Err())
	}
	if store.IsLoading() {
		t.Error("loading flag left set")
	}
}

func TestLoadRegionNoOpWhenFresh(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	srv := &fakeServer{generations: []domain.ServerItem{wire("1,0", "d0")}}
	ld := New(nil, store, srv)

	if err := ld.LoadRegion(context.Background(), "1,0", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ld.LoadRegion(context.Background(), "1,0", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ld.LoadRegion(context.Background(), "1,0", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := srv.generationCalls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestLoadRegionDeeperRequestRefetches(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	srv := &fakeServer{generations: []domain.ServerItem{wire("1,0", "d0")}}
	ld := New(nil, store, srv)

	if err := ld.LoadRegion(context.Background(), "1,0", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ld.LoadRegion(context.Background(), "1,0", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := srv.generationCalls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestLoadRegionSingleFlight(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	srv := &fakeServer{
		generations: []domain.ServerItem{wire("1,0", "d0")},
		release:     make(chan struct{}),
	}
	ld := New(nil, store, srv)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = ld.LoadRegion(context.Background(), "1,0", 2)
		}(i)
	}

	// Let the goroutines pile onto the flight, then release the fetch.
	for srv.generationCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(srv.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if got := srv.generationCalls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestLoadRegionFailureRecordsError(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	srv := &fakeServer{err: errors.New("connection refused")}
	ld := New(nil, store, srv)

	err := ld.LoadRegion(context.Background(), "1,0", 2)
	if !domain.ErrNetwork.Has(err) {
		t.Fatalf("expected a network error, got %v", err)
	}
	if store.Err() == nil {
		t.Error("store error not set")
	}
	if store.IsLoading() {
		t.Error("loading flag left set after failure")
	}
	if _, ok := store.RegionMeta("1,0"); ok {
		t.Error("failed load must not record region metadata")
	}
}

func TestLoadRegionRejectsMalformedCenter(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	ld := New(nil, store, &fakeServer{})

	if err := ld.LoadRegion(context.Background(), "not-a-coordinate", 1); !domain.ErrFormat.Has(err) {
		t.Fatalf("expected a format error, got %v", err)
	}
}

func TestLoadItemChildrenMergesWithoutRegionMetadata(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	srv := &fakeServer{children: []domain.ServerItem{
		wire("1,0:1", "d1"),
		wire("1,0:1,1", "d11"),
	}}
	ld := New(nil, store, srv)

	if err := ld.LoadItemChildren(context.Background(), "1,0:1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.ItemCount() != 2 {
		t.Errorf("item count = %d, want 2", store.ItemCount())
	}
	if _, ok := store.RegionMeta("1,0:1"); ok {
		t.Error("children load widened region metadata")
	}
}

func TestPrefetchRegionSwallowsFailure(t *testing.T) {
	store := cache.NewStore(cache.DefaultConfig())
	srv := &fakeServer{err: errors.New("boom")}
	ld := New(nil, store, srv)

	// Must not panic or propagate.
	ld.PrefetchRegion(context.Background(), "1,0")

	if got := srv.generationCalls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}
