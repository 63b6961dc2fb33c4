package cache

import "time"

// Config tunes cache freshness and loading behavior.
type Config struct {
	// MaxAge is how long a region load stays fresh. Items are never evicted;
	// they only go stale and get refreshed on demand.
	MaxAge time.Duration
	// BackgroundRefreshInterval is the suggested cadence for background
	// refresh; the sync engine reads it as its default interval.
	BackgroundRefreshInterval time.Duration
	// EnableOptimisticUpdates applies mutations locally before the server
	// confirms them.
	EnableOptimisticUpdates bool
	// MaxDepth is the default generation depth for region loads.
	MaxDepth int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MaxAge:                    5 * time.Minute,
		BackgroundRefreshInterval: 30 * time.Second,
		EnableOptimisticUpdates:   true,
		MaxDepth:                  3,
	}
}

// ConfigPatch is a partial config update; nil fields keep their value.
type ConfigPatch struct {
	MaxAge                    *time.Duration
	BackgroundRefreshInterval *time.Duration
	EnableOptimisticUpdates   *bool
	MaxDepth                  *int
}

func (c Config) apply(patch ConfigPatch) Config {
	if patch.MaxAge != nil {
		c.MaxAge = *patch.MaxAge
	}
	if patch.BackgroundRefreshInterval != nil {
		c.BackgroundRefreshInterval = *patch.BackgroundRefreshInterval
	}
	if patch.EnableOptimisticUpdates != nil {
		c.EnableOptimisticUpdates = *patch.EnableOptimisticUpdates
	}
	if patch.MaxDepth != nil {
		c.MaxDepth = *patch.MaxDepth
	}
	return c
}
