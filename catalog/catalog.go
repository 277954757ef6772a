// Package catalog defines the catalog contracts the materialization cache
// consumes: dataset-config lookup through a per-refresh view, plus an
// in-memory implementation used by tests and embedders without a catalog.
package catalog

import (
	"strings"
	"sync"
)

// DatasetConfig is the catalog's record for a single dataset.
type DatasetConfig struct {
	// Key is the qualified dataset path.
	Key []string

	// Tag is the dataset version tag, bumped on every metadata change.
	Tag string

	// RecordSchema is the serialized record schema of the dataset.
	RecordSchema []byte
}

// View is a scoped window into the catalog.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: a view acquired for a refresh is released by calling
//   ClearDatasetCache once the refresh is done with it.
type View interface {
	// DatasetConfig returns the config for the given dataset key, or
	// (nil, false) when the catalog has no such dataset.
	DatasetConfig(key []string) (*DatasetConfig, bool)

	// ClearDatasetCache drops any per-dataset state the view accumulated.
	ClearDatasetCache()
}

// Service hands out catalog views.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Ownership: each SystemView call returns a fresh view; views are not
//   shared between refreshes.
type Service interface {
	// SystemView returns a fresh system-level view of the catalog.
	SystemView() View
}

// KeyString renders a qualified dataset key as a single dotted path.
func KeyString(key []string) string {
	return strings.Join(key, ".")
}

// MemoryService is an in-memory catalog. Datasets are registered with Put
// and served to views by key.
type MemoryService struct {
	mu       sync.RWMutex
	datasets map[string]*DatasetConfig
}

// NewMemoryService creates an empty in-memory catalog.
func NewMemoryService() *MemoryService {
	return &MemoryService{datasets: make(map[string]*DatasetConfig)}
}

// Put registers or replaces a dataset config.
func (s *MemoryService) Put(cfg *DatasetConfig) {
	s.mu.Lock()
	s.datasets[KeyString(cfg.Key)] = cfg
	s.mu.Unlock()
}

// Remove drops a dataset config. Idempotent.
func (s *MemoryService) Remove(key []string) {
	s.mu.Lock()
	delete(s.datasets, KeyString(key))
	s.mu.Unlock()
}

// SystemView returns a fresh view over the current datasets. Lookups are
// memoized per view until ClearDatasetCache is called.
func (s *MemoryService) SystemView() View {
	return &memoryView{service: s, cache: make(map[string]*DatasetConfig)}
}

type memoryView struct {
	service *MemoryService

	mu    sync.Mutex
	cache map[string]*DatasetConfig
}

func (v *memoryView) DatasetConfig(key []string) (*DatasetConfig, bool) {
	k := KeyString(key)

	v.mu.Lock()
	if cfg, ok := v.cache[k]; ok {
		v.mu.Unlock()
		return cfg, cfg != nil
	}
	v.mu.Unlock()

	v.service.mu.RLock()
	cfg := v.service.datasets[k]
	v.service.mu.RUnlock()

	v.mu.Lock()
	v.cache[k] = cfg
	v.mu.Unlock()
	return cfg, cfg != nil
}

func (v *memoryView) ClearDatasetCache() {
	v.mu.Lock()
	v.cache = make(map[string]*DatasetConfig)
	v.mu.Unlock()
}

var (
	_ Service = (*MemoryService)(nil)
	_ View    = (*memoryView)(nil)
)
