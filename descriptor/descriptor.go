package descriptor

// Descriptor is the raw, unexpanded metadata wrapper around a
// materialization: identifiers, freshness, and the serialized plan blob.
// The cache treats it as immutable.
type Descriptor struct {
	// MaterializationID identifies the materialization the descriptor wraps.
	// For external reflections this is the reflection id.
	MaterializationID MaterializationID

	// ReflectionID is the owning reflection definition.
	ReflectionID ReflectionID

	// Plan is the opaque serialized plan blob.
	Plan []byte

	// Tag is the version tag of the wrapped record.
	Tag string

	// IsStale reports whether the materialized data is known stale.
	IsStale bool

	// SchemaVersion tags the target schema version of the serialized plan.
	SchemaVersion string

	// Path is the qualified dataset path of the materialization.
	Path []string
}

// Expanded is the computed artifact held in the cache: the raw descriptor it
// came from, the expanded plan tree, and the schema captured at expansion.
// Freshness fields change only by copy, never in place.
type Expanded struct {
	// Source is the raw descriptor the expansion started from.
	Source *Descriptor

	// Plan is the expanded plan tree bound to catalog metadata.
	Plan Node

	// Schema is the record schema captured when the plan was expanded.
	Schema Schema

	// Stale reports whether the materialized data is known stale.
	Stale bool

	// Tag is the version tag at expansion or at the last freshness copy.
	Tag string
}

// WithFreshness returns a copy of e carrying the given staleness and tag.
// The expanded plan, schema, and source descriptor are shared, so reuse
// checks based on plan identity still hold for the copy.
func (e *Expanded) WithFreshness(stale bool, tag string) *Expanded {
	return &Expanded{
		Source: e.Source,
		Plan:   e.Plan,
		Schema: e.Schema,
		Stale:  stale,
		Tag:    tag,
	}
}
