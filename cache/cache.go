package cache

import (
	"context"
	"maps"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/matcache/catalog"
	"github.com/jonwraymond/matcache/descriptor"
	"github.com/jonwraymond/matcache/observe"
	"github.com/jonwraymond/matcache/options"
	"github.com/jonwraymond/matcache/status"
	"github.com/jonwraymond/matcache/store"
)

// updateWaitCeiling bounds how long Update waits for the cold-start refresh
// before proceeding anyway. Best-effort: the scheduled refresh converges.
const updateWaitCeiling = 10 * time.Minute

// snapshot is the immutable cache content at a point in time. A published
// snapshot is never mutated; writers build a new map and swap the pointer.
type snapshot map[string]*descriptor.Expanded

// Config configures a MaterializationCache. Provider, Status, Catalog,
// Options, and Store are required; telemetry fields default to noops and
// Now defaults to time.Now.
type Config struct {
	// Provider supplies the current materialization set and expansion.
	Provider Expander

	// Status reports external reflection sync state.
	Status status.Service

	// Catalog hands out per-refresh catalog views.
	Catalog catalog.Service

	// Options supplies the cache tunables.
	Options *options.Manager

	// Store is the durable materialization store used for escalation.
	Store store.Store

	// Logger receives structured cache logs.
	Logger observe.Logger

	// Meter creates the cache's metric instruments.
	Meter metric.Meter

	// Tracer creates refresh and expansion spans.
	Tracer trace.Tracer

	// Now is the wall clock. Injectable for tests.
	Now func() time.Time
}

// MaterializationCache caches expanded materialization descriptors so the
// planner does not re-expand every plan on every planned query.
type MaterializationCache struct {
	provider       Expander
	statusService  status.Service
	catalogService catalog.Service
	opts           *options.Manager
	matStore       store.Store
	logger         observe.Logger
	tracer         trace.Tracer
	metrics        *cacheMetrics
	now            func() time.Time

	cached  atomic.Pointer[snapshot]
	barrier *initBarrier
	ledger  *retryLedger
}

// New creates a MaterializationCache. The cache starts empty with a closed
// init barrier; the first Refresh opens it.
func New(cfg Config) (*MaterializationCache, error) {
	switch {
	case cfg.Provider == nil:
		return nil, ErrNilProvider
	case cfg.Status == nil:
		return nil, ErrNilStatusService
	case cfg.Catalog == nil:
		return nil, ErrNilCatalogService
	case cfg.Options == nil:
		return nil, ErrNilOptions
	case cfg.Store == nil:
		return nil, ErrNilStore
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Meter == nil {
		cfg.Meter = metricnoop.NewMeterProvider().Meter("matcache")
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracenoop.NewTracerProvider().Tracer("matcache")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &MaterializationCache{
		provider:       cfg.Provider,
		statusService:  cfg.Status,
		catalogService: cfg.Catalog,
		opts:           cfg.Options,
		matStore:       cfg.Store,
		logger:         cfg.Logger.WithComponent("materialization-cache"),
		tracer:         cfg.Tracer,
		now:            cfg.Now,
		barrier:        newInitBarrier(),
	}
	empty := make(snapshot)
	c.cached.Store(&empty)
	c.ledger = newRetryLedger(cfg.Options.MaxRetryAge()+time.Hour, c.now)

	metrics, err := newCacheMetrics(cfg.Meter, func() int64 {
		return int64(len(*c.cached.Load()))
	})
	if err != nil {
		return nil, err
	}
	c.metrics = metrics
	return c, nil
}

// Get returns the expanded descriptor for id from the current snapshot.
// Non-blocking.
func (c *MaterializationCache) Get(id string) (*descriptor.Expanded, bool) {
	e, ok := (*c.cached.Load())[id]
	return e, ok
}

// Contains reports whether the current snapshot holds an entry for id.
// Callers use it to check whether a reflection is online for the planner.
// Non-blocking.
func (c *MaterializationCache) Contains(id string) bool {
	_, ok := (*c.cached.Load())[id]
	return ok
}

// GetAll returns every expanded descriptor in the current snapshot. It
// blocks until the cache initializes, up to the configured init timeout;
// cancellation during the wait is reported as ErrInitTimeout.
func (c *MaterializationCache) GetAll(ctx context.Context) ([]*descriptor.Expanded, error) {
	if c.opts.CacheEnabled() && !c.barrier.wait(ctx, c.opts.InitTimeout()) {
		return nil, ErrInitTimeout
	}
	snap := *c.cached.Load()
	all := make([]*descriptor.Expanded, 0, len(snap))
	for _, e := range snap {
		all = append(all, e)
	}
	return all, nil
}

// IsInitialized reports whether readers may rely on the cache: true once
// the first refresh returned, or always when the cache is disabled.
func (c *MaterializationCache) IsInitialized() bool {
	if !c.opts.CacheEnabled() {
		return true
	}
	return c.barrier.opened()
}

// Invalidate removes id from the snapshot. The retry ledger is untouched.
func (c *MaterializationCache) Invalidate(id string) {
	for {
		old := c.cached.Load()
		if _, ok := (*old)[id]; !ok {
			return // entry not present, nothing more to do
		}
		updated := make(snapshot, len(*old))
		maps.Copy(updated, *old)
		delete(updated, id)
		if c.cached.CompareAndSwap(old, &updated) {
			return
		}
	}
}

// Reset clears the snapshot. The init barrier and retry ledger are left
// alone; the next refresh repopulates the cache.
func (c *MaterializationCache) Reset() {
	for {
		old := c.cached.Load()
		empty := make(snapshot)
		if c.cached.CompareAndSwap(old, &empty) {
			return
		}
	}
}

// Update expands m against a fresh catalog view and inserts the result into
// the snapshot. It lets the cold-start refresh finish first (bounded by
// updateWaitCeiling) so the insert does not race the initial CAS loop.
// Expansion happens outside the CAS loop; an absent expansion is a no-op and
// expansion failures propagate to the caller.
func (c *MaterializationCache) Update(ctx context.Context, m *descriptor.Materialization) error {
	if c.opts.CacheEnabled() && !c.barrier.wait(ctx, updateWaitCeiling) {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Barrier timeout: proceed anyway, the scheduled refresh converges.
	}

	expanded, err := c.provider.Expand(m, c.catalogService.SystemView())
	if err != nil {
		return err
	}
	if expanded == nil {
		return nil
	}

	key := m.ID.String()
	for {
		old := c.cached.Load()
		updated := make(snapshot, len(*old)+1)
		maps.Copy(updated, *old)
		updated[key] = expanded
		if c.cached.CompareAndSwap(old, &updated) {
			return nil
		}
	}
}

// Viewer is a read-only window onto the cache for collaborators that must
// not mutate it.
type Viewer struct {
	c *MaterializationCache
}

// Viewer returns a read-only view of the cache.
func (c *MaterializationCache) Viewer() *Viewer {
	return &Viewer{c: c}
}

// IsCached reports whether id is present in the current snapshot.
func (v *Viewer) IsCached(id string) bool {
	return v.c.Contains(id)
}

// IsInitialized reports whether the cache finished its first refresh.
func (v *Viewer) IsInitialized() bool {
	return v.c.IsInitialized()
}

// Entries returns the current snapshot size.
func (v *Viewer) Entries() int {
	return len(*v.c.cached.Load())
}
