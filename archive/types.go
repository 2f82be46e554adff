package archive

import "encoding/json"

// YouTubePlatform is the per-video youtube platform record. Data carries the
// archive's opaque platform blob (descriptions, thumbnails, file lists) and
// is passed through untouched.
type YouTubePlatform struct {
	URL          string          `json:"url,omitempty"`
	Downloaded   bool            `json:"downloaded,omitempty"`
	DownloadedAt string          `json:"downloaded_at,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

type NostrmediaPlatform struct {
	URL        string `json:"url,omitempty"`
	Hash       string `json:"hash,omitempty"`
	UploadedAt string `json:"uploaded_at,omitempty"`
}

type Platforms struct {
	YouTube    *YouTubePlatform    `json:"youtube,omitempty"`
	Nostrmedia *NostrmediaPlatform `json:"nostrmedia,omitempty"`
}

// Video is the archive's metadata record for one video.
type Video struct {
	VideoID     string              `json:"video_id"`
	Title       string              `json:"title,omitempty"`
	PublishedAt string              `json:"published_at,omitempty"`
	Duration    int                 `json:"duration,omitempty"`
	Platforms   Platforms           `json:"platforms,omitempty"`
	NostrPosts  []json.RawMessage   `json:"nostr_posts,omitempty"`
	Npubs       map[string][]string `json:"npubs,omitempty"`
	SyncedAt    string              `json:"synced_at,omitempty"`
}

// Downloaded reports whether the archive holds the video file itself.
func (v *Video) Downloaded() bool {
	return v.Platforms.YouTube != nil && v.Platforms.YouTube.Downloaded
}

// FileContent is a whole video file fetched from the archive, with its
// SHA-256 (hex) and size precomputed for the transfer protocol.
type FileContent struct {
	VideoID string
	Data    []byte
	Hash    string
	Size    int64
}

// ListResponse is one page of the archive's video listing.
type ListResponse struct {
	Videos []*Video `json:"videos"`
	Total  int      `json:"total"`
	Offset int      `json:"offset"`
	Limit  int      `json:"limit"`
}
