package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/matcache/catalog"
	"github.com/jonwraymond/matcache/descriptor"
	"github.com/jonwraymond/matcache/observe"
)

// Refresh performs one full reconciliation pass: diff the provider's current
// set against the snapshot, expand new and changed entries, and atomically
// swap in the rebuilt map. The first Refresh to return opens the init
// barrier, whether or not any expansion succeeded.
func (c *MaterializationCache) Refresh(ctx context.Context) {
	initial := !c.barrier.opened()
	start := time.Now()
	c.compareAndSetCache(ctx)
	c.metrics.recordSync(ctx, float64(time.Since(start))/float64(time.Millisecond), initial)
}

func (c *MaterializationCache) compareAndSetCache(ctx context.Context) {
	ctx, span := c.tracer.Start(ctx, "matcache.refresh")
	defer span.End()

	coldStart := time.Now()
	defer func() {
		if !c.barrier.opened() {
			c.logger.Info(ctx, "cold cache update complete",
				observe.F("elapsed_ms", time.Since(coldStart).Milliseconds()),
				observe.F("expanded", len(*c.cached.Load())))
		}
		c.barrier.open()
	}()

	// One provider fetch and one catalog view per refresh; a losing CAS
	// rebuilds from the same provider set.
	provided := c.provider.ValidMaterializations()
	externals := c.provider.ExternalReflections()
	view := c.catalogService.SystemView()
	defer view.ClearDatasetCache()

	for {
		old := c.cached.Load()
		updated := c.buildSnapshot(ctx, *old, provided, externals, view)
		if c.cached.CompareAndSwap(old, &updated) {
			return
		}
		c.logger.Warn(ctx, "unable to compare and set cache",
			observe.F("old_count", len(*old)),
			observe.F("updated_count", len(updated)))
	}
}

// buildSnapshot rebuilds the cache map against the provider's current set,
// reusing entries from old whenever change detection allows it.
func (c *MaterializationCache) buildSnapshot(
	ctx context.Context,
	old snapshot,
	provided []*descriptor.Materialization,
	externals []*descriptor.ExternalReflection,
	view catalog.View,
) snapshot {
	updated := make(snapshot, len(provided)+len(externals))

	// Entries absent from the provider set simply never make it into
	// updated; reuse everything else unless its schema drifted.
	var matReused, matExpanded, matErrors int
	for _, m := range provided {
		key := m.ID.String()
		cachedEntry := old[key]
		if cachedEntry == nil || c.schemaChanged(ctx, cachedEntry, m, view) {
			if c.updateMaterializationEntry(ctx, updated, m, view) {
				matExpanded++
			} else {
				matErrors++
			}
			continue
		}
		// Staleness or tag may move after the plan was expanded; carry the
		// change on a copy wrapping the same expanded plan.
		if cachedEntry.Stale != m.IsStale || cachedEntry.Tag != m.Tag {
			updated[key] = cachedEntry.WithFreshness(m.IsStale, m.Tag)
		} else {
			updated[key] = cachedEntry
		}
		matReused++
	}

	var extReused, extExpanded, extErrors int
	for _, r := range externals {
		key := r.ID.String()
		cachedEntry := old[key]
		if cachedEntry == nil || c.externalOutOfSync(r.ID) || c.externalMetadataUpdated(ctx, cachedEntry, view) {
			if c.updateExternalReflectionEntry(ctx, updated, r, view) {
				extExpanded++
			} else {
				extErrors++
			}
		} else {
			updated[key] = cachedEntry
			extReused++
		}
	}

	c.logger.Info(ctx, "materialization cache updated",
		observe.F("reused", matReused),
		observe.F("expanded", matExpanded),
		observe.F("errors", matErrors),
		observe.F("external_reused", extReused),
		observe.F("external_expanded", extExpanded),
		observe.F("external_errors", extErrors))
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("matcache.reuse_count", matReused),
		attribute.Int("matcache.expand_count", matExpanded),
		attribute.Int("matcache.error_count", matErrors),
		attribute.Int("matcache.external_reuse_count", extReused),
		attribute.Int("matcache.external_expand_count", extExpanded),
		attribute.Int("matcache.external_error_count", extErrors),
	)
	return updated
}

// updateMaterializationEntry expands one internal materialization into the
// map being built. Returns true on a successful insert. Failures are counted
// and retried on later refreshes until the retry window closes, after which
// the materialization is escalated to FAILED. Source-down failures retry
// without a time bound.
func (c *MaterializationCache) updateMaterializationEntry(
	ctx context.Context,
	updated snapshot,
	m *descriptor.Materialization,
	view catalog.View,
) bool {
	ctx, span := c.tracer.Start(ctx, "matcache.expand.entry", trace.WithAttributes(
		attribute.String("matcache.reflection_id", m.ReflectionID.String()),
		attribute.String("matcache.materialization_id", m.ID.String()),
	))
	defer span.End()

	expanded, err := c.provider.Expand(m, view)
	if err == nil {
		if expanded == nil {
			return false
		}
		updated[m.ID.String()] = expanded
		c.ledger.clear(m.ID.String())
		return true
	}

	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	if c.barrier.opened() {
		c.logger.Warn(ctx, "error expanding materialization, will retry",
			observe.F("materialization_id", m.ID.String()),
			observe.F("error", err.Error()))
	} else {
		c.logger.Warn(ctx, "initialization: error expanding materialization, will retry",
			observe.F("materialization_id", m.ID.String()),
			observe.F("error", err.Error()))
	}
	c.metrics.recordError(ctx, err)

	// Source-down failures retry for as long as the ledger remembers them.
	firstFailure := c.ledger.firstFailure(m.ID.String())
	if !IsSourceDown(err) && c.now().Sub(firstFailure) >= c.opts.RetryWindow() {
		c.escalate(ctx, m, err)
	}
	return false
}

// updateExternalReflectionEntry resolves and expands one external reflection
// into the map being built. Returns true on a successful insert. External
// entries never escalate to FAILED; their freshness is governed by the
// external status service.
func (c *MaterializationCache) updateExternalReflectionEntry(
	ctx context.Context,
	updated snapshot,
	entry *descriptor.ExternalReflection,
	view catalog.View,
) bool {
	ctx, span := c.tracer.Start(ctx, "matcache.expand.external", trace.WithAttributes(
		attribute.String("matcache.reflection_id", entry.ID.String()),
		attribute.String("matcache.name", entry.Name),
		attribute.String("matcache.query_dataset_id", entry.QueryDatasetID),
		attribute.String("matcache.target_dataset_id", entry.TargetDatasetID),
	))
	defer span.End()

	raw, err := c.provider.ExternalDescriptor(entry, view)
	if err == nil && raw != nil {
		var expanded *descriptor.Expanded
		expanded, err = c.provider.ExpandDescriptor(raw, view)
		if err == nil {
			if expanded == nil {
				return false
			}
			updated[entry.ID.String()] = expanded
			return true
		}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		c.logger.Warn(ctx, "error expanding external reflection",
			observe.F("reflection_id", entry.ID.String()),
			observe.F("name", entry.Name),
			observe.F("error", err.Error()))
		c.metrics.recordError(ctx, err)
	}
	return false
}
