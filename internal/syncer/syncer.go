// Package syncer keeps the cache approximately fresh against the server
// without server-initiated push: a timer-driven scheduler reconciled with
// connectivity and visibility triggers.
package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"hexmap/internal/cache"
	"hexmap/internal/domain"
	"hexmap/internal/loader"
)

// staleRegionBatchLimit caps how many stale regions one sync pass reloads in
// addition to the current center.
const staleRegionBatchLimit = 5

// Config tunes the scheduler.
type Config struct {
	Enabled    bool
	Interval   time.Duration
	RetryDelay time.Duration
	MaxRetries int
	// EnableConflictResolution is reserved; the only strategy implemented is
	// server-wins-by-refetch and ConflictsResolved stays zero.
	EnableConflictResolution bool
	SyncOnVisibilityChange   bool
	SyncOnNetworkReconnect   bool
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		Interval:               30 * time.Second,
		RetryDelay:             5 * time.Second,
		MaxRetries:             3,
		SyncOnVisibilityChange: true,
		SyncOnNetworkReconnect: true,
	}
}

// Pending is implemented by the mutation coordinator; the scheduler skips
// regions with unsettled optimistic mutations so a stale read never
// overwrites an unconfirmed value.
type Pending interface {
	HasPendingWithin(center domain.Coordinate, maxDepth int) bool
}

// Result reports one sync pass.
type Result struct {
	ItemsSynced       int
	RegionsReloaded   int
	ConflictsResolved int
}

// Engine is the background synchronizer. SetOnline and SetVisible are the
// connectivity/visibility listener entry points; they only act while the
// engine is started and unpaused.
type Engine struct {
	log     *zap.Logger
	store   *cache.Store
	loader  *loader.Loader
	cfg     Config
	pending Pending

	mu         sync.Mutex
	started    bool
	paused     bool
	online     bool
	visible    bool
	syncing    bool
	timer      *time.Timer
	lastSyncAt time.Time
	nextSyncAt time.Time
	syncCount  int
	errorCount int
	failStreak int
	lastError  string
	now        func() time.Time
}

// New creates a sync engine. pending may be nil.
func New(log *zap.Logger, store *cache.Store, ld *loader.Loader, cfg Config, pending Pending) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:     log.Named("syncer"),
		store:   store,
		loader:  ld,
		cfg:     cfg,
		pending: pending,
		online:  true,
		visible: true,
		now:     time.Now,
	}
}

// Start schedules the first tick. No-op when disabled or already started.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || !e.cfg.Enabled {
		return
	}
	e.started = true
	e.scheduleLocked(e.cfg.Interval)
}

// Stop cancels the pending timer and detaches the engine. An in-flight sync
// pass is not force-cancelled; it just won't reschedule.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started = false
	e.paused = false
	e.cancelTimerLocked()
}

// Pause cancels the pending timer but keeps the listeners attached.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.paused = true
	e.cancelTimerLocked()
}

// Resume reschedules if the engine was started.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || !e.paused {
		return
	}
	e.paused = false
	e.scheduleLocked(e.cfg.Interval)
}

// IsStarted reports whether Start has run without a matching Stop.
func (e *Engine) IsStarted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// IsPaused reports whether the scheduler is paused.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Status returns the externally visible sync state.
func (e *Engine) Status() domain.SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.SyncStatus{
		IsOnline:   e.online,
		IsSyncing:  e.syncing,
		LastSyncAt: e.lastSyncAt,
		NextSyncAt: e.nextSyncAt,
		SyncCount:  e.syncCount,
		ErrorCount: e.errorCount,
		LastError:  e.lastError,
	}
}

// SetOnline records a connectivity change. Transitioning to online while
// started and unpaused triggers an immediate sync when configured.
func (e *Engine) SetOnline(online bool) {
	e.mu.Lock()
	wasOnline := e.online
	e.online = online
	trigger := online && !wasOnline && e.started && !e.paused && e.cfg.SyncOnNetworkReconnect
	e.mu.Unlock()
	if trigger {
		go e.syncDetached("reconnect")
	}
}

// SetVisible records a visibility change. Transitioning to visible while
// started and unpaused triggers an immediate sync when configured.
func (e *Engine) SetVisible(visible bool) {
	e.mu.Lock()
	wasVisible := e.visible
	e.visible = visible
	trigger := visible && !wasVisible && e.started && !e.paused && e.cfg.SyncOnVisibilityChange
	e.mu.Unlock()
	if trigger {
		go e.syncDetached("visibility")
	}
}

// ForceSync cancels any pending timer, runs a pass immediately, and
// reschedules from completion. Unlike scheduled ticks, its failure
// propagates: the caller asked for it explicitly.
func (e *Engine) ForceSync(ctx context.Context) (Result, error) {
	e.mu.Lock()
	e.cancelTimerLocked()
	e.mu.Unlock()

	result, err := e.runSync(ctx)

	e.mu.Lock()
	if e.started && !e.paused {
		e.scheduleLocked(e.cfg.Interval)
	}
	e.mu.Unlock()
	return result, err
}

func (e *Engine) syncDetached(reason string) {
	if _, err := e.ForceSync(context.Background()); err != nil {
		e.log.Warn("triggered sync failed", zap.String("trigger", reason), zap.Error(err))
	}
}

// scheduleLocked arms the timer; callers hold e.mu.
func (e *Engine) scheduleLocked(d time.Duration) {
	e.cancelTimerLocked()
	e.nextSyncAt = e.now().Add(d)
	e.timer = time.AfterFunc(d, e.tick)
}

func (e *Engine) cancelTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.nextSyncAt = time.Time{}
}

// tick runs one scheduled pass. Failures update counters and the log but
// never propagate; the next tick is scheduled from completion, backing off
// to RetryDelay for up to MaxRetries consecutive failures.
func (e *Engine) tick() {
	e.mu.Lock()
	if !e.started || e.paused {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	_, err := e.runSync(context.Background())
	if err != nil {
		e.log.Warn("sync tick failed", zap.Error(err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.paused {
		return
	}
	delay := e.cfg.Interval
	if err != nil && e.failStreak <= e.cfg.MaxRetries && e.cfg.RetryDelay > 0 {
		delay = e.cfg.RetryDelay
	}
	e.scheduleLocked(delay)
}

// runSync guards a single pass; overlapping passes collapse to one.
func (e *Engine) runSync(ctx context.Context) (Result, error) {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		return Result{}, nil
	}
	e.syncing = true
	e.mu.Unlock()

	result, err := e.performSync(ctx)

	e.mu.Lock()
	e.syncing = false
	e.lastSyncAt = e.now()
	e.syncCount++
	if err != nil {
		e.errorCount++
		e.failStreak++
		e.lastError = err.Error()
	} else {
		e.failStreak = 0
		e.lastError = ""
	}
	e.mu.Unlock()
	return result, err
}

// performSync reloads the current center's region at the configured depth,
// then up to staleRegionBatchLimit stale regions, oldest first. Each region
// failure is logged independently; the batch never aborts early.
func (e *Engine) performSync(ctx context.Context) (Result, error) {
	var result Result
	var group errs.Group

	maxDepth := e.store.Config().MaxDepth
	center := e.store.CurrentCenter()

	if center != "" {
		if e.skipPending(center, maxDepth) {
			e.log.Debug("skipping center with pending mutations", zap.String("center", center))
		} else {
			e.store.Dispatch(cache.InvalidateRegion{CenterCoordID: center})
			if err := e.loader.LoadRegion(ctx, center, maxDepth); err != nil {
				e.log.Warn("center reload failed", zap.String("center", center), zap.Error(err))
				group.Add(err)
			} else {
				result.RegionsReloaded++
				result.ItemsSynced += e.regionSize(center, maxDepth)
			}
		}
	}

	stale := e.store.StaleRegions()
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].LoadedAt.Before(stale[j].LoadedAt)
	})

	reloaded := 0
	for _, meta := range stale {
		if reloaded >= staleRegionBatchLimit {
			break
		}
		if meta.CenterCoordID == center {
			continue
		}
		if e.skipPending(meta.CenterCoordID, meta.MaxDepth) {
			continue
		}
		if err := e.loader.LoadRegion(ctx, meta.CenterCoordID, meta.MaxDepth); err != nil {
			e.log.Warn("stale region reload failed",
				zap.String("center", meta.CenterCoordID), zap.Error(err))
			group.Add(err)
			continue
		}
		reloaded++
		result.RegionsReloaded++
		result.ItemsSynced += e.regionSize(meta.CenterCoordID, meta.MaxDepth)
	}

	return result, group.Err()
}

func (e *Engine) skipPending(centerCoordID string, maxDepth int) bool {
	if e.pending == nil {
		return false
	}
	coord, err := domain.ParseID(centerCoordID)
	if err != nil {
		return false
	}
	return e.pending.HasPendingWithin(coord, maxDepth)
}

func (e *Engine) regionSize(centerCoordID string, maxDepth int) int {
	items, err := e.store.ItemsWithinRegion(centerCoordID, maxDepth)
	if err != nil {
		return 0
	}
	return len(items)
}
