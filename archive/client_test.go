package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestListVideosPaging(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("offset"); got != "100" {
			t.Fatalf("offset = %s, want 100", got)
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Fatalf("limit = %s, want 100", got)
		}
		json.NewEncoder(w).Encode(&ListResponse{
			Videos: []*Video{{VideoID: "v1"}},
			Total:  101,
			Offset: 100,
			Limit:  100,
		})
	})

	res, err := c.ListVideos(context.Background(), 100, 100, "published_at", "desc")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Videos) != 1 || res.Total != 101 {
		t.Fatalf("unexpected response: %+v", res)
	}
}

func TestGetVideoNotFound(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	v, err := c.GetVideo(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil video, got %+v", v)
	}
}

func TestGetVideoFileContent(t *testing.T) {
	fileBytes := []byte("some video bytes")

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos/v1":
			json.NewEncoder(w).Encode(&Video{
				VideoID:   "v1",
				Title:     "First",
				Platforms: Platforms{YouTube: &YouTubePlatform{Downloaded: true}},
			})
		case "/videos/v1/file":
			w.Write(fileBytes)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	fc, err := c.GetVideoFileContent(context.Background(), "v1")
	if err != nil {
		t.Fatal(err)
	}
	if fc == nil {
		t.Fatal("expected content")
	}
	sum := sha256.Sum256(fileBytes)
	if fc.Hash != hex.EncodeToString(sum[:]) {
		t.Fatalf("hash = %s, want %s", fc.Hash, hex.EncodeToString(sum[:]))
	}
	if fc.Size != int64(len(fileBytes)) {
		t.Fatalf("size = %d, want %d", fc.Size, len(fileBytes))
	}
}

func TestGetVideoFileContentNotDownloaded(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&Video{VideoID: "v1"})
	})

	fc, err := c.GetVideoFileContent(context.Background(), "v1")
	if err != nil {
		t.Fatal(err)
	}
	if fc != nil {
		t.Fatalf("expected nil content for undownloaded video, got %+v", fc)
	}
}

func TestDownloadVideo(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/v2/platforms/youtube/download" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["quality"] != "best" {
			t.Fatalf("quality = %v", body["quality"])
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	ok, err := c.DownloadVideo(context.Background(), "v2")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected success")
	}
}

func TestCreateYouTubePlatform(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["url"] != "https://www.youtube.com/watch?v=v3" {
			t.Fatalf("url = %v", body["url"])
		}
		if body["downloaded"] != false {
			t.Fatalf("downloaded = %v", body["downloaded"])
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})

	ok, err := c.CreateYouTubePlatform(context.Background(), "v3", "https://www.youtube.com/watch?v=v3", nil, false, "")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected success")
	}
}
