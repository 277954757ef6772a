// Package refresher drives the materialization cache's reconciliation on a
// fixed interval. Manual triggers between ticks are coalesced so concurrent
// callers share one refresh pass.
package refresher

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/matcache/observe"
)

// Sentinel errors for refresher configuration.
var (
	// ErrNilCache indicates no cache was configured.
	ErrNilCache = errors.New("refresher: cache is required")

	// ErrInvalidInterval indicates a non-positive refresh interval.
	ErrInvalidInterval = errors.New("refresher: interval must be positive")
)

// Cache is the refreshable surface the runner drives.
type Cache interface {
	Refresh(ctx context.Context)
}

// Config configures a Runner.
type Config struct {
	// Cache is the cache to refresh.
	Cache Cache

	// Interval is the time between scheduled refreshes.
	// Default: 1 minute.
	Interval time.Duration

	// Logger receives runner logs. Default: no logging.
	Logger observe.Logger
}

// Runner refreshes the cache on a schedule and on demand.
//
// Contract:
// - Concurrency: Run is called once; TriggerNow may be called from any
//   goroutine. Overlapping triggers share one refresh pass.
// - Context: Run returns when its context is done.
type Runner struct {
	cache    Cache
	interval time.Duration
	logger   observe.Logger
	group    singleflight.Group
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Cache == nil {
		return nil, ErrNilCache
	}
	if cfg.Interval == 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Interval < 0 {
		return nil, ErrInvalidInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Runner{
		cache:    cfg.Cache,
		interval: cfg.Interval,
		logger:   cfg.Logger.WithComponent("cache-refresher"),
	}, nil
}

// Run refreshes immediately, then on every interval tick until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info(ctx, "cache refresher started", observe.F("interval", r.interval.String()))
	r.TriggerNow(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info(ctx, "cache refresher stopped")
			return
		case <-ticker.C:
			r.TriggerNow(ctx)
		}
	}
}

// TriggerNow runs one refresh pass. Concurrent triggers are coalesced: every
// caller blocks until the shared pass completes.
func (r *Runner) TriggerNow(ctx context.Context) {
	r.group.Do("refresh", func() (any, error) {
		r.cache.Refresh(ctx)
		return nil, nil
	})
}
