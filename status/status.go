// Package status defines the external reflection status contract: the cache
// asks it whether an external reflection's configuration is still in sync
// with the dataset it mirrors.
package status

import (
	"sync"

	"github.com/jonwraymond/matcache/descriptor"
)

// ConfigStatus describes how an external reflection's configuration relates
// to the dataset state it was derived from.
type ConfigStatus int

const (
	// ConfigInSync indicates the reflection configuration matches the dataset.
	ConfigInSync ConfigStatus = iota
	// ConfigOutOfSync indicates the dataset moved and the reflection must be
	// re-expanded.
	ConfigOutOfSync
	// ConfigNotFound indicates the reflection is unknown to the service.
	ConfigNotFound
)

// String returns the string representation of the status.
func (s ConfigStatus) String() string {
	switch s {
	case ConfigInSync:
		return "in_sync"
	case ConfigOutOfSync:
		return "out_of_sync"
	case ConfigNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// ExternalReflectionStatus is the sync state reported for one external
// reflection.
type ExternalReflectionStatus struct {
	ConfigStatus ConfigStatus
}

// Service reports external reflection sync state.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: unknown reflections report ConfigNotFound, not an error.
type Service interface {
	// ExternalReflectionStatus returns the sync state for the given id.
	ExternalReflectionStatus(id descriptor.ReflectionID) ExternalReflectionStatus
}

// MemoryService is an in-memory status service for tests and embedders.
type MemoryService struct {
	mu       sync.RWMutex
	statuses map[descriptor.ReflectionID]ConfigStatus
}

// NewMemoryService creates an empty in-memory status service.
func NewMemoryService() *MemoryService {
	return &MemoryService{statuses: make(map[descriptor.ReflectionID]ConfigStatus)}
}

// Set records the config status for an id.
func (s *MemoryService) Set(id descriptor.ReflectionID, st ConfigStatus) {
	s.mu.Lock()
	s.statuses[id] = st
	s.mu.Unlock()
}

// ExternalReflectionStatus returns the recorded status, or ConfigNotFound.
func (s *MemoryService) ExternalReflectionStatus(id descriptor.ReflectionID) ExternalReflectionStatus {
	s.mu.RLock()
	st, ok := s.statuses[id]
	s.mu.RUnlock()
	if !ok {
		return ExternalReflectionStatus{ConfigStatus: ConfigNotFound}
	}
	return ExternalReflectionStatus{ConfigStatus: st}
}

var _ Service = (*MemoryService)(nil)
