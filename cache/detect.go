package cache

import (
	"context"

	"github.com/jonwraymond/matcache/catalog"
	"github.com/jonwraymond/matcache/descriptor"
	"github.com/jonwraymond/matcache/observe"
	"github.com/jonwraymond/matcache/status"
)

// schemaChanged reports whether the dataset schema behind a cached entry
// drifted from what the entry was expanded against. A dataset missing from
// the catalog counts as changed.
func (c *MaterializationCache) schemaChanged(
	ctx context.Context,
	cached *descriptor.Expanded,
	m *descriptor.Materialization,
	view catalog.View,
) bool {
	cfg, ok := view.DatasetConfig(m.Path)
	if !ok {
		return true
	}

	current, err := descriptor.DeserializeSchema(cfg.RecordSchema)
	if err != nil {
		c.logger.Warn(ctx, "failed to deserialize dataset schema, forcing re-expansion",
			observe.F("dataset", catalog.KeyString(m.Path)),
			observe.F("error", err.Error()))
		return true
	}
	return !cached.Schema.Equal(current)
}

// externalOutOfSync reports whether the status service marks the external
// reflection's configuration out of sync with its dataset.
func (c *MaterializationCache) externalOutOfSync(id descriptor.ReflectionID) bool {
	return c.statusService.ExternalReflectionStatus(id).ConfigStatus == status.ConfigOutOfSync
}

// externalMetadataUpdated walks the cached plan's table-scan leaves and
// reports whether any scanned dataset moved past the version captured at
// expansion. Missing datasets and scans outside the catalog are
// conservatively treated as updated.
func (c *MaterializationCache) externalMetadataUpdated(
	ctx context.Context,
	cached *descriptor.Expanded,
	view catalog.View,
) bool {
	updated := false
	descriptor.Walk(cached.Plan, func(n descriptor.Node) bool {
		scan, ok := n.(*descriptor.TableScan)
		if !ok {
			return true
		}
		if !scan.Resident {
			updated = true
			return false
		}
		cfg, ok := view.DatasetConfig(scan.Table)
		if !ok {
			updated = true
			return false
		}
		if cfg.Tag != scan.Version {
			c.logger.Debug(ctx, "dataset has new data, invalidating external reflection entry",
				observe.F("dataset", catalog.KeyString(scan.Table)))
			updated = true
			return false
		}
		return true
	})
	return updated
}
