package catalog

import (
	"reflect"
	"testing"

	"decdata/archive"
)

func TestDiff(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want []string
	}{
		{"disjoint", []string{"v1", "v2"}, []string{"v3"}, []string{"v1", "v2"}},
		{"overlap", []string{"v2", "v3"}, []string{"v1", "v2"}, []string{"v3"}},
		{"equal", []string{"v1"}, []string{"v1"}, nil},
		{"empty a", nil, []string{"v1"}, nil},
		{"empty b", []string{"v1"}, nil, []string{"v1"}},
		{"order independent", []string{"v3", "v1", "v2"}, []string{"v2"}, []string{"v1", "v3"}},
		{"duplicates in a", []string{"v1", "v1", "v2"}, []string{"v2"}, []string{"v1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Diff(tc.a, tc.b)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Diff(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestStoreReplaceIsWholesale(t *testing.T) {
	s := NewStore()
	s.Put(&Entry{VideoID: "v1"})
	s.Put(&Entry{VideoID: "v2"})

	s.Replace(map[string]*Entry{"v3": {VideoID: "v3"}})

	if s.Has("v1") || s.Has("v2") {
		t.Fatal("old entries survived a replace")
	}
	if !s.Has("v3") {
		t.Fatal("new entry missing after replace")
	}
	if got := s.IDs(); !reflect.DeepEqual(got, []string{"v3"}) {
		t.Fatalf("IDs = %v", got)
	}
}

func TestStoreReplaceNil(t *testing.T) {
	s := NewStore()
	s.Put(&Entry{VideoID: "v1"})
	s.Replace(nil)
	if s.Len() != 0 {
		t.Fatalf("Len = %d after nil replace", s.Len())
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.Put(&Entry{VideoID: "v1"})

	snap := s.Snapshot()
	delete(snap, "v1")

	if !s.Has("v1") {
		t.Fatal("mutating a snapshot reached the store")
	}
}

func TestPeerSetReplaceNotMerge(t *testing.T) {
	p := NewPeerSet()
	p.Replace("peerA", []string{"v1", "v2"})
	p.Replace("peerA", []string{"v2", "v3"})

	if p.Contains("peerA", "v1") {
		t.Fatal("v1 survived a replace; peer catalogs must not be cumulative")
	}
	if got := p.IDs("peerA"); !reflect.DeepEqual(got, []string{"v2", "v3"}) {
		t.Fatalf("IDs = %v", got)
	}
}

func TestPeerSetIdempotentReplace(t *testing.T) {
	p := NewPeerSet()
	p.Replace("peerA", []string{"v2", "v1"})
	first := p.IDs("peerA")
	p.Replace("peerA", []string{"v1", "v2"})
	second := p.IDs("peerA")

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical catalogs produced different sets: %v vs %v", first, second)
	}
}

func TestPeerSetRemove(t *testing.T) {
	p := NewPeerSet()
	p.Replace("peerA", []string{"v1"})
	p.Remove("peerA")

	if p.Known("peerA") {
		t.Fatal("peer still known after remove")
	}
	if p.IDs("peerA") != nil {
		t.Fatal("IDs should be nil for unknown peer")
	}
}

func TestEntryFromVideo(t *testing.T) {
	e := EntryFromVideo(&archive.Video{VideoID: "v1", Title: "First", Duration: 42})
	if e.VideoID != "v1" || e.Title != "First" || e.Duration != 42 {
		t.Fatalf("unexpected entry %+v", e)
	}
}
