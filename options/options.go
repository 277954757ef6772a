// Package options holds the runtime tunables the materialization cache
// recognizes. Options are read at use time, so an embedder can adjust them
// on a live cache.
package options

import (
	"sync"
	"time"
)

// Defaults applied by NewManager for zero-valued config fields.
const (
	// DefaultInitTimeout is the readers' wait budget for cache initialization.
	DefaultInitTimeout = 300 * time.Second

	// DefaultRetryWindow is how long a failing entry is retried before it is
	// escalated to a permanent failure.
	DefaultRetryWindow = 30 * time.Minute

	// DefaultMaxRetryAge is the retry-ledger expiry horizon. The ledger keeps
	// records one extra hour past this so a still-retrying entry is not
	// evicted before its window closes.
	DefaultMaxRetryAge = 24 * time.Hour
)

// Config configures a Manager. Zero values select the defaults above;
// CacheDisabled defaults to the cache being enabled.
type Config struct {
	// CacheDisabled turns the materialization cache off. A disabled cache
	// treats the init barrier as open.
	CacheDisabled bool

	// InitTimeout bounds how long readers wait for the first refresh.
	InitTimeout time.Duration

	// RetryWindow bounds retries of a failing entry before escalation.
	RetryWindow time.Duration

	// MaxRetryAge bounds how long a retry-ledger record may live.
	MaxRetryAge time.Duration
}

// Manager is a thread-safe holder of the recognized options.
type Manager struct {
	mu           sync.RWMutex
	cacheEnabled bool
	initTimeout  time.Duration
	retryWindow  time.Duration
	maxRetryAge  time.Duration
}

// NewManager creates a Manager, applying defaults for zero-valued fields.
func NewManager(cfg Config) *Manager {
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}
	if cfg.RetryWindow <= 0 {
		cfg.RetryWindow = DefaultRetryWindow
	}
	if cfg.MaxRetryAge <= 0 {
		cfg.MaxRetryAge = DefaultMaxRetryAge
	}
	return &Manager{
		cacheEnabled: !cfg.CacheDisabled,
		initTimeout:  cfg.InitTimeout,
		retryWindow:  cfg.RetryWindow,
		maxRetryAge:  cfg.MaxRetryAge,
	}
}

// CacheEnabled reports whether the materialization cache is enabled.
func (m *Manager) CacheEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cacheEnabled
}

// SetCacheEnabled flips the cache-enabled option.
func (m *Manager) SetCacheEnabled(enabled bool) {
	m.mu.Lock()
	m.cacheEnabled = enabled
	m.mu.Unlock()
}

// InitTimeout returns the readers' wait budget for initialization.
func (m *Manager) InitTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initTimeout
}

// SetInitTimeout adjusts the readers' wait budget.
func (m *Manager) SetInitTimeout(d time.Duration) {
	m.mu.Lock()
	m.initTimeout = d
	m.mu.Unlock()
}

// RetryWindow returns the per-entry retry window for failures that are not
// classified source-down.
func (m *Manager) RetryWindow() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retryWindow
}

// SetRetryWindow adjusts the per-entry retry window.
func (m *Manager) SetRetryWindow(d time.Duration) {
	m.mu.Lock()
	m.retryWindow = d
	m.mu.Unlock()
}

// MaxRetryAge returns the retry-ledger expiry horizon.
func (m *Manager) MaxRetryAge() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxRetryAge
}
