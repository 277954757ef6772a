package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/jonwraymond/matcache/catalog"
	"github.com/jonwraymond/matcache/descriptor"
	"github.com/jonwraymond/matcache/options"
	"github.com/jonwraymond/matcache/status"
)

// newExternalHarness wires the fake expander for external reflections whose
// expanded plan scans a catalog-resident dataset.
func newExternalHarness(t *testing.T) (*harness, *descriptor.ExternalReflection) {
	t.Helper()
	h := newHarness(t, options.Config{})
	ext := &descriptor.ExternalReflection{
		ID:              "ext1",
		Name:            "orders_by_day",
		QueryDatasetID:  "q1",
		TargetDatasetID: "t1",
	}
	h.registerDataset(t, []string{"src", "orders"}, "v1", testSchema)
	h.provider.setExternals(ext)
	h.provider.expandDescFn = func(d *descriptor.Descriptor, _ catalog.View) (*descriptor.Expanded, error) {
		return &descriptor.Expanded{
			Source: d,
			Plan:   &descriptor.TableScan{Table: []string{"src", "orders"}, Version: "v1", Resident: true},
			Schema: testSchema,
		}, nil
	}
	h.status.Set(ext.ID, status.ConfigInSync)
	return h, ext
}

func TestRefresh_ExpandsExternalReflection(t *testing.T) {
	h, _ := newExternalHarness(t)

	h.cache.Refresh(context.Background())

	if !h.cache.Contains("ext1") {
		t.Fatal("external reflection should be cached after refresh")
	}
}

func TestRefresh_ReusesInSyncExternal(t *testing.T) {
	h, _ := newExternalHarness(t)

	h.cache.Refresh(context.Background())
	first, _ := h.cache.Get("ext1")
	calls := h.provider.expandDescCalls

	h.cache.Refresh(context.Background())

	if h.provider.expandDescCalls != calls {
		t.Error("in-sync external should be reused without expansion")
	}
	second, _ := h.cache.Get("ext1")
	if second != first {
		t.Error("reused external entry should keep its identity")
	}
}

func TestRefresh_OutOfSyncExternalReExpands(t *testing.T) {
	h, ext := newExternalHarness(t)

	h.cache.Refresh(context.Background())
	first, _ := h.cache.Get("ext1")

	h.status.Set(ext.ID, status.ConfigOutOfSync)
	h.cache.Refresh(context.Background())

	second, ok := h.cache.Get("ext1")
	if !ok {
		t.Fatal("external reflection should stay cached after re-expansion")
	}
	if second == first {
		t.Error("out-of-sync external must be re-expanded, not reused")
	}
}

func TestRefresh_ExternalDatasetVersionBumpReExpands(t *testing.T) {
	h, _ := newExternalHarness(t)

	h.cache.Refresh(context.Background())
	first, _ := h.cache.Get("ext1")

	// The scanned dataset moves to a new version tag.
	h.registerDataset(t, []string{"src", "orders"}, "v2", testSchema)
	h.provider.expandDescFn = func(d *descriptor.Descriptor, _ catalog.View) (*descriptor.Expanded, error) {
		return &descriptor.Expanded{
			Source: d,
			Plan:   &descriptor.TableScan{Table: []string{"src", "orders"}, Version: "v2", Resident: true},
			Schema: testSchema,
		}, nil
	}
	h.cache.Refresh(context.Background())

	second, ok := h.cache.Get("ext1")
	if !ok {
		t.Fatal("external reflection should stay cached")
	}
	if second == first {
		t.Error("a dataset version bump must force re-expansion")
	}
}

func TestRefresh_NonResidentScanForcesReExpansion(t *testing.T) {
	h, _ := newExternalHarness(t)
	h.provider.expandDescFn = func(d *descriptor.Descriptor, _ catalog.View) (*descriptor.Expanded, error) {
		return &descriptor.Expanded{
			Source: d,
			Plan:   &descriptor.TableScan{Table: []string{"ext", "files"}, Version: "v1", Resident: false},
			Schema: testSchema,
		}, nil
	}

	h.cache.Refresh(context.Background())
	calls := h.provider.expandDescCalls
	h.cache.Refresh(context.Background())

	if h.provider.expandDescCalls == calls {
		t.Error("a non-catalog-resident scan must conservatively re-expand")
	}
}

func TestRefresh_ExternalAbsentDescriptorDropsEntry(t *testing.T) {
	h, ext := newExternalHarness(t)
	h.provider.extDescFn = func(*descriptor.ExternalReflection, catalog.View) (*descriptor.Descriptor, error) {
		return nil, nil
	}

	h.cache.Refresh(context.Background())

	if h.cache.Contains(ext.ID.String()) {
		t.Error("absent raw descriptor must drop the entry")
	}
	if h.cache.ledger.size() != 0 {
		t.Error("external entries never create retry records")
	}
}

func TestRefresh_ExternalErrorNeverEscalates(t *testing.T) {
	h, ext := newExternalHarness(t)
	h.provider.expandDescFn = func(*descriptor.Descriptor, catalog.View) (*descriptor.Expanded, error) {
		return nil, errors.New("external expansion failed")
	}

	h.cache.Refresh(context.Background())

	if h.cache.Contains(ext.ID.String()) {
		t.Error("failed external expansion must not be cached")
	}
	if h.cache.ledger.size() != 0 {
		t.Error("external failures must not enter the retry ledger")
	}
}

func TestSchemaChanged_MissingDatasetForcesExpansion(t *testing.T) {
	h := newHarness(t, options.Config{})
	a := h.newMat(t, "a1")
	h.provider.setMaterializations(a)
	h.expandByMat()
	h.cache.Refresh(context.Background())
	calls := h.provider.calls()

	h.catalog.Remove(a.Path)
	h.cache.Refresh(context.Background())

	if h.provider.calls() == calls {
		t.Error("a dataset missing from the catalog must force re-expansion")
	}
}

func TestSchemaChanged_SchemaDriftForcesExpansion(t *testing.T) {
	h := newHarness(t, options.Config{})
	a := h.newMat(t, "a1")
	h.provider.setMaterializations(a)
	h.expandByMat()
	h.cache.Refresh(context.Background())
	first, _ := h.cache.Get("a1")
	calls := h.provider.calls()

	drifted := descriptor.Schema{Fields: []descriptor.Field{
		{Name: "id", Type: "bigint"},
		{Name: "added", Type: "varchar"},
	}}
	h.registerDataset(t, a.Path, "v1", drifted)
	h.cache.Refresh(context.Background())

	if h.provider.calls() == calls {
		t.Error("schema drift must force re-expansion")
	}
	second, _ := h.cache.Get("a1")
	if second == first {
		t.Error("re-expanded entry should replace the cached one")
	}
}

func TestSchemaChanged_GarbageSchemaForcesExpansion(t *testing.T) {
	h := newHarness(t, options.Config{})
	a := h.newMat(t, "a1")
	h.provider.setMaterializations(a)
	h.expandByMat()
	h.cache.Refresh(context.Background())
	calls := h.provider.calls()

	h.catalog.Put(&catalog.DatasetConfig{Key: a.Path, Tag: "v1", RecordSchema: []byte("not a schema")})
	h.cache.Refresh(context.Background())

	if h.provider.calls() == calls {
		t.Error("an undecodable schema must force re-expansion")
	}
}
