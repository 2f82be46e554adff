package leveldb

import (
	"testing"

	"decdata/catalog"
)

func newTestIndex(t *testing.T) *CatalogIndex {
	t.Helper()
	idx, err := NewCatalogIndex(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestCatalogIndexPutGet(t *testing.T) {
	idx := newTestIndex(t)

	in := &catalog.Entry{VideoID: "v1", Title: "First", Duration: 10, FileHash: "abc"}
	if err := idx.Put(in); err != nil {
		t.Fatal(err)
	}

	out, err := idx.Get("v1")
	if err != nil {
		t.Fatal(err)
	}
	if out == nil {
		t.Fatal("entry not found")
	}
	if out.Title != "First" || out.Duration != 10 || out.FileHash != "abc" {
		t.Fatalf("unexpected entry %+v", out)
	}
}

func TestCatalogIndexGetMissing(t *testing.T) {
	idx := newTestIndex(t)

	out, err := idx.Get("nope")
	if err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Fatalf("expected nil, got %+v", out)
	}
}

func TestCatalogIndexReplaceAll(t *testing.T) {
	idx := newTestIndex(t)

	idx.Put(&catalog.Entry{VideoID: "v1"})
	idx.Put(&catalog.Entry{VideoID: "v2"})

	err := idx.ReplaceAll(map[string]*catalog.Entry{
		"v3": {VideoID: "v3", Title: "Third"},
	})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := idx.Enumerate()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].VideoID != "v3" {
		t.Fatalf("unexpected entries after replace: %+v", entries)
	}
}

func TestCatalogIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	idx, err := NewCatalogIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	idx.Put(&catalog.Entry{VideoID: "v1", Title: "First"})
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx2, err := NewCatalogIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()

	out, err := idx2.Get("v1")
	if err != nil {
		t.Fatal(err)
	}
	if out == nil || out.Title != "First" {
		t.Fatalf("entry lost across reopen: %+v", out)
	}
}
