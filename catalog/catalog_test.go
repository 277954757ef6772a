package catalog

import (
	"fmt"
	"sync"
	"testing"
)

func TestMemoryService_PutAndLookup(t *testing.T) {
	svc := NewMemoryService()
	svc.Put(&DatasetConfig{Key: []string{"src", "orders"}, Tag: "v1"})

	view := svc.SystemView()

	cfg, ok := view.DatasetConfig([]string{"src", "orders"})
	if !ok {
		t.Fatal("DatasetConfig should find a registered dataset")
	}
	if cfg.Tag != "v1" {
		t.Errorf("Tag = %q, want v1", cfg.Tag)
	}

	if _, ok := view.DatasetConfig([]string{"src", "missing"}); ok {
		t.Error("DatasetConfig should miss on an unregistered dataset")
	}
}

func TestMemoryView_MemoizesUntilCleared(t *testing.T) {
	svc := NewMemoryService()
	svc.Put(&DatasetConfig{Key: []string{"src", "orders"}, Tag: "v1"})

	view := svc.SystemView()
	if _, ok := view.DatasetConfig([]string{"src", "orders"}); !ok {
		t.Fatal("first lookup should hit")
	}

	// The view serves the memoized config even after the service moves on.
	svc.Put(&DatasetConfig{Key: []string{"src", "orders"}, Tag: "v2"})
	cfg, ok := view.DatasetConfig([]string{"src", "orders"})
	if !ok || cfg.Tag != "v1" {
		t.Errorf("memoized lookup returned tag %q, want v1", cfg.Tag)
	}

	view.ClearDatasetCache()
	cfg, ok = view.DatasetConfig([]string{"src", "orders"})
	if !ok || cfg.Tag != "v2" {
		t.Errorf("post-clear lookup returned tag %q, want v2", cfg.Tag)
	}
}

func TestMemoryView_MemoizesMisses(t *testing.T) {
	svc := NewMemoryService()
	view := svc.SystemView()

	if _, ok := view.DatasetConfig([]string{"src", "late"}); ok {
		t.Fatal("lookup before Put should miss")
	}

	svc.Put(&DatasetConfig{Key: []string{"src", "late"}, Tag: "v1"})
	if _, ok := view.DatasetConfig([]string{"src", "late"}); ok {
		t.Error("a miss should be memoized until the view is cleared")
	}

	view.ClearDatasetCache()
	if _, ok := view.DatasetConfig([]string{"src", "late"}); !ok {
		t.Error("lookup after clear should see the new dataset")
	}
}

func TestMemoryService_ViewsAreIndependent(t *testing.T) {
	svc := NewMemoryService()
	svc.Put(&DatasetConfig{Key: []string{"src", "t"}, Tag: "v1"})

	a := svc.SystemView()
	if _, ok := a.DatasetConfig([]string{"src", "t"}); !ok {
		t.Fatal("view a should hit")
	}

	svc.Put(&DatasetConfig{Key: []string{"src", "t"}, Tag: "v2"})
	b := svc.SystemView()
	cfg, ok := b.DatasetConfig([]string{"src", "t"})
	if !ok || cfg.Tag != "v2" {
		t.Errorf("fresh view returned tag %q, want v2", cfg.Tag)
	}
}

func TestMemoryService_ConcurrentAccess(t *testing.T) {
	svc := NewMemoryService()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"src", fmt.Sprintf("t%d", i%5)}
			svc.Put(&DatasetConfig{Key: key, Tag: "v"})
			view := svc.SystemView()
			view.DatasetConfig(key)
			view.ClearDatasetCache()
			view.DatasetConfig(key)
		}(i)
	}
	wg.Wait()
}

func TestKeyString(t *testing.T) {
	if got := KeyString([]string{"a", "b", "c"}); got != "a.b.c" {
		t.Errorf("KeyString = %q, want a.b.c", got)
	}
	if got := KeyString(nil); got != "" {
		t.Errorf("KeyString(nil) = %q, want empty", got)
	}
}
