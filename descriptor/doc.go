// Package descriptor defines the materialization data model shared by the
// cache and its collaborators: stored materializations, external reflections,
// raw and expanded descriptors, expanded plan trees, and record schemas.
package descriptor
