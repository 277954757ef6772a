package descriptor

import "github.com/google/uuid"

// MaterializationID identifies a single materialization of a reflection.
type MaterializationID string

// NewMaterializationID returns a fresh random materialization id.
func NewMaterializationID() MaterializationID {
	return MaterializationID(uuid.NewString())
}

func (id MaterializationID) String() string { return string(id) }

// ReflectionID identifies a reflection definition. Internal materializations
// and external reflections share one id space in the cache, so a ReflectionID
// never collides with a MaterializationID by construction of the provider.
type ReflectionID string

// NewReflectionID returns a fresh random reflection id.
func NewReflectionID() ReflectionID {
	return ReflectionID(uuid.NewString())
}

func (id ReflectionID) String() string { return string(id) }
