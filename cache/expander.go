package cache

import (
	"github.com/jonwraymond/matcache/catalog"
	"github.com/jonwraymond/matcache/descriptor"
)

// Expander supplies the cache with the current set of materializations and
// turns their serialized plans into expanded descriptors.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a (nil, nil) return means "absent": the entry is dropped from
//   the snapshot without retry tracking. A non-nil error is retryable; wrap
//   ErrSourceDown to mark an upstream outage and retry without a time bound.
type Expander interface {
	// ValidMaterializations returns the provider's current set of valid
	// internal materializations.
	ValidMaterializations() []*descriptor.Materialization

	// ExternalReflections returns the provider's current set of external
	// reflections.
	ExternalReflections() []*descriptor.ExternalReflection

	// ExternalDescriptor resolves an external reflection to its raw
	// descriptor against the given catalog view.
	ExternalDescriptor(r *descriptor.ExternalReflection, view catalog.View) (*descriptor.Descriptor, error)

	// ExpandDescriptor expands a raw descriptor's serialized plan.
	ExpandDescriptor(d *descriptor.Descriptor, view catalog.View) (*descriptor.Expanded, error)

	// Expand expands an internal materialization's serialized plan.
	Expand(m *descriptor.Materialization, view catalog.View) (*descriptor.Expanded, error)
}
