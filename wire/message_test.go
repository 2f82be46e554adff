package wire

import (
	"errors"
	"testing"
)

func TestDecodeCatalog(t *testing.T) {
	raw := []byte(`{"type":"catalog","node_id":"peerA","videos":["v1","v2"]}`)
	msg, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := msg.(*Catalog)
	if !ok {
		t.Fatalf("decoded %T, want *Catalog", msg)
	}
	if c.NodeID != "peerA" || len(c.Videos) != 2 {
		t.Fatalf("unexpected message %+v", c)
	}
}

func TestDecodeDispatchesEveryType(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"type":"catalog","node_id":"n","videos":[]}`, "*wire.Catalog"},
		{`{"type":"search","search_id":"s1","query":"q"}`, "*wire.Search"},
		{`{"type":"search_result","search_id":"s1","node_id":"n","results":[]}`, "*wire.SearchResult"},
		{`{"type":"download_request","request_id":"r1","video_id":"v1"}`, "*wire.DownloadRequest"},
		{`{"type":"file_data","request_id":"r1","video_id":"v1","file_hash":"h","file_size":1,"file_data":"00"}`, "*wire.FileData"},
		{`{"type":"download_error","request_id":"r1","error":"Video not found"}`, "*wire.DownloadError"},
		{`{"type":"video_info_request","request_id":"r1","video_id":"v1"}`, "*wire.VideoInfoRequest"},
		{`{"type":"video_info_response","request_id":"r1","success":true}`, "*wire.VideoInfoResponse"},
	}

	for _, tc := range cases {
		msg, err := Decode([]byte(tc.raw))
		if err != nil {
			t.Fatalf("Decode(%s): %v", tc.raw, err)
		}
		if got := typeName(msg); got != tc.want {
			t.Fatalf("Decode(%s) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *Catalog:
		return "*wire.Catalog"
	case *Search:
		return "*wire.Search"
	case *SearchResult:
		return "*wire.SearchResult"
	case *DownloadRequest:
		return "*wire.DownloadRequest"
	case *FileData:
		return "*wire.FileData"
	case *DownloadError:
		return "*wire.DownloadError"
	case *VideoInfoRequest:
		return "*wire.VideoInfoRequest"
	case *VideoInfoResponse:
		return "*wire.VideoInfoResponse"
	case *Unknown:
		return "*wire.Unknown"
	default:
		return "?"
	}
}

func TestDecodeUnknownType(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"future_thing","payload":123}`))
	if err != nil {
		t.Fatal(err)
	}
	u, ok := msg.(*Unknown)
	if !ok {
		t.Fatalf("decoded %T, want *Unknown", msg)
	}
	if u.Type != "future_thing" {
		t.Fatalf("Type = %s", u.Type)
	}
}

func TestDecodeMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"node_id":"n"}`))
	if !errors.Is(err, ErrMissingType) {
		t.Fatalf("err = %v, want ErrMissingType", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
