package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hexmap/internal/adapters/memory"
	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/loader"
	"hexmap/internal/ports"
)

// recordingServer wraps the in-memory server and keeps the order of region
// fetches.
type recordingServer struct {
	*memory.Server
	mu      sync.Mutex
	centers []string
}

func (r *recordingServer) GetItemWithGenerations(ctx context.Context, req ports.GenerationsRequest) ([]domain.ServerItem, error) {
	r.mu.Lock()
	r.centers = append(r.centers, req.CoordID)
	r.mu.Unlock()
	return r.Server.GetItemWithGenerations(ctx, req)
}

func (r *recordingServer) fetched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.centers...)
}

func (r *recordingServer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.centers = nil
}

type fixture struct {
	store  *cache.Store
	server *recordingServer
	loader *loader.Loader
}

func newFixture(t *testing.T, cacheCfg cache.Config) *fixture {
	t.Helper()
	store := cache.NewStore(cacheCfg)
	server := &recordingServer{Server: memory.New()}
	server.Seed(
		domain.ServerItem{ID: "d0", Coordinates: "1,0", Title: "root"},
		domain.ServerItem{ID: "d1", Coordinates: "1,0:1", Title: "alpha"},
		domain.ServerItem{ID: "d2", Coordinates: "1,0:2", Title: "beta"},
		domain.ServerItem{ID: "d3", Coordinates: "1,0:3", Title: "gamma"},
		domain.ServerItem{ID: "d4", Coordinates: "1,0:4", Title: "delta"},
	)
	return &fixture{
		store:  store,
		server: server,
		loader: loader.New(nil, store, server),
	}
}

// seedRegion loads one region and spaces the load timestamps out so staleness
// ordering is deterministic.
func (f *fixture) seedRegion(t *testing.T, center string, depth int) {
	t.Helper()
	if err := f.loader.LoadRegion(context.Background(), center, depth); err != nil {
		t.Fatalf("seed region %s: %v", center, err)
	}
	time.Sleep(2 * time.Millisecond)
}

func TestForceSyncReloadsCenterAndStaleRegions(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.MaxAge = 40 * time.Millisecond
	cfg.MaxDepth = 1
	f := newFixture(t, cfg)

	f.seedRegion(t, "1,0:1", 1)
	f.seedRegion(t, "1,0:2", 1)
	f.seedRegion(t, "1,0", 1)
	f.store.Dispatch(cache.SetCenter{CoordID: "1,0"})

	// Let every seeded region expire, then load one that stays fresh.
	time.Sleep(50 * time.Millisecond)
	f.seedRegion(t, "1,0:4", 1)

	f.server.reset()
	e := New(nil, f.store, f.loader, DefaultConfig(), nil)

	result, err := e.ForceSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Center first, then the stale regions oldest first. The fresh region
	// is left alone.
	got := f.server.fetched()
	want := []string{"1,0", "1,0:1", "1,0:2"}
	if len(got) != len(want) {
		t.Fatalf("fetched %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fetch %d = %q, want %q", i, got[i], want[i])
		}
	}
	if result.RegionsReloaded != 3 {
		t.Errorf("regions reloaded = %d, want 3", result.RegionsReloaded)
	}
	if result.ItemsSynced == 0 {
		t.Error("no items counted")
	}

	status := e.Status()
	if status.SyncCount != 1 || status.ErrorCount != 0 || status.LastError != "" {
		t.Errorf("status after clean sync: %+v", status)
	}
}

func TestForceSyncBoundsStaleBatch(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.MaxAge = -time.Second // everything is immediately stale
	cfg.MaxDepth = 1
	f := newFixture(t, cfg)

	centers := []string{"1,0:1", "1,0:2", "1,0:3", "1,0:4", "1,0:1,1", "1,0:2,1", "1,0:3,1"}
	for _, center := range centers {
		f.seedRegion(t, center, 1)
	}
	f.store.Dispatch(cache.SetCenter{CoordID: "1,0"})

	f.server.reset()
	e := New(nil, f.store, f.loader, DefaultConfig(), nil)

	result, err := e.ForceSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One center reload plus at most the batch limit of stale regions.
	if got := len(f.server.fetched()); got != 1+staleRegionBatchLimit {
		t.Errorf("fetched %d regions, want %d", got, 1+staleRegionBatchLimit)
	}
	if result.RegionsReloaded != 1+staleRegionBatchLimit {
		t.Errorf("regions reloaded = %d, want %d", result.RegionsReloaded, 1+staleRegionBatchLimit)
	}
}

// staticPending marks fixed coordinate ids as having unsettled mutations.
type staticPending struct {
	ids []string
}

func (p *staticPending) HasPendingWithin(center domain.Coordinate, maxDepth int) bool {
	for _, id := range p.ids {
		coord, err := domain.ParseID(id)
		if err != nil {
			continue
		}
		if coord.WithinRegion(center, maxDepth) {
			return true
		}
	}
	return false
}

func TestForceSyncSkipsPendingRegions(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.MaxAge = -time.Second
	cfg.MaxDepth = 1
	f := newFixture(t, cfg)

	f.seedRegion(t, "1,0:1", 1)
	f.seedRegion(t, "1,0:2", 1)
	f.store.Dispatch(cache.SetCenter{CoordID: "1,0"})

	f.server.reset()
	pending := &staticPending{ids: []string{"1,0:2", "1,0"}}
	e := New(nil, f.store, f.loader, DefaultConfig(), pending)

	result, err := e.ForceSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The center and the region holding the pending mutation are skipped.
	got := f.server.fetched()
	if len(got) != 1 || got[0] != "1,0:1" {
		t.Errorf("fetched %v, want just 1,0:1", got)
	}
	if result.RegionsReloaded != 1 {
		t.Errorf("regions reloaded = %d, want 1", result.RegionsReloaded)
	}
}

func TestForceSyncPropagatesFailure(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.MaxDepth = 1
	f := newFixture(t, cfg)
	f.store.Dispatch(cache.SetCenter{CoordID: "1,0"})

	f.server.FailWith(errors.New("gateway timeout"))
	e := New(nil, f.store, f.loader, DefaultConfig(), nil)

	if _, err := e.ForceSync(context.Background()); err == nil {
		t.Fatal("expected the forced sync to fail")
	}
	status := e.Status()
	if status.ErrorCount != 1 || status.LastError == "" {
		t.Errorf("status after failure: %+v", status)
	}

	f.server.FailWith(nil)
	if _, err := e.ForceSync(context.Background()); err != nil {
		t.Fatalf("recovery sync failed: %v", err)
	}
	status = e.Status()
	if status.SyncCount != 2 || status.LastError != "" {
		t.Errorf("status after recovery: %+v", status)
	}
}

func TestStartPauseResumeStop(t *testing.T) {
	f := newFixture(t, cache.DefaultConfig())
	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	e := New(nil, f.store, f.loader, cfg, nil)

	e.Start()
	if !e.IsStarted() {
		t.Fatal("engine not started")
	}
	if e.Status().NextSyncAt.IsZero() {
		t.Error("no tick scheduled after start")
	}

	e.Pause()
	if !e.IsPaused() {
		t.Fatal("engine not paused")
	}
	if !e.Status().NextSyncAt.IsZero() {
		t.Error("pause left a tick scheduled")
	}

	e.Resume()
	if e.IsPaused() {
		t.Fatal("engine still paused")
	}
	if e.Status().NextSyncAt.IsZero() {
		t.Error("resume did not reschedule")
	}

	e.Stop()
	if e.IsStarted() {
		t.Error("engine still started after stop")
	}
	if !e.Status().NextSyncAt.IsZero() {
		t.Error("stop left a tick scheduled")
	}
}

func TestStartNoOpWhenDisabled(t *testing.T) {
	f := newFixture(t, cache.DefaultConfig())
	cfg := DefaultConfig()
	cfg.Enabled = false
	e := New(nil, f.store, f.loader, cfg, nil)

	e.Start()
	if e.IsStarted() {
		t.Error("disabled engine must not start")
	}
}

func TestReconnectTriggersSync(t *testing.T) {
	f := newFixture(t, cache.DefaultConfig())
	f.store.Dispatch(cache.SetCenter{CoordID: "1,0"})

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	e := New(nil, f.store, f.loader, cfg, nil)
	e.Start()
	defer e.Stop()

	e.SetOnline(false)
	e.SetOnline(true)

	waitFor(t, func() bool { return e.Status().SyncCount >= 1 })
}

func TestVisibilityTriggerHonorsConfig(t *testing.T) {
	f := newFixture(t, cache.DefaultConfig())

	cfg := DefaultConfig()
	cfg.Interval = time.Hour
	cfg.SyncOnVisibilityChange = false
	e := New(nil, f.store, f.loader, cfg, nil)
	e.Start()
	defer e.Stop()

	e.SetVisible(false)
	e.SetVisible(true)

	time.Sleep(20 * time.Millisecond)
	if got := e.Status().SyncCount; got != 0 {
		t.Errorf("sync count = %d, visibility trigger should be off", got)
	}
}

func TestScheduledTickRuns(t *testing.T) {
	f := newFixture(t, cache.DefaultConfig())
	f.store.Dispatch(cache.SetCenter{CoordID: "1,0"})

	cfg := DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	e := New(nil, f.store, f.loader, cfg, nil)
	e.Start()
	defer e.Stop()

	waitFor(t, func() bool { return e.Status().SyncCount >= 2 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
}
