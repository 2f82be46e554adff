// Package wire defines the peer message protocol: one JSON object per
// message, discriminated by the required "type" field. Decode maps a raw
// payload to exactly one concrete message type; unrecognized types come back
// as *Unknown so the router can skip them without failing.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"decdata/archive"
	"decdata/catalog"
)

const (
	TypeCatalog           = "catalog"
	TypeSearch            = "search"
	TypeSearchResult      = "search_result"
	TypeDownloadRequest   = "download_request"
	TypeFileData          = "file_data"
	TypeDownloadError     = "download_error"
	TypeVideoInfoRequest  = "video_info_request"
	TypeVideoInfoResponse = "video_info_response"
)

var ErrMissingType = errors.New("wire: message has no type field")

// Envelope carries only the discriminator; used for the first decode pass.
type Envelope struct {
	Type string `json:"type"`
}

// Catalog advertises a node's full local inventory. Non-cumulative: the
// receiver replaces whatever it previously knew about the sender.
type Catalog struct {
	Type   string   `json:"type"`
	NodeID string   `json:"node_id"`
	Videos []string `json:"videos"`
}

// Search is a fire-and-forget broadcast query, by exact video id or
// case-insensitive title substring.
type Search struct {
	Type     string `json:"type"`
	SearchID string `json:"search_id"`
	Query    string `json:"query,omitempty"`
	VideoID  string `json:"video_id,omitempty"`
}

type SearchResult struct {
	Type     string           `json:"type"`
	SearchID string           `json:"search_id"`
	NodeID   string           `json:"node_id"`
	Results  []*catalog.Entry `json:"results"`
}

type DownloadRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	VideoID   string `json:"video_id"`
}

// FileData carries a whole file as a hex string inside the JSON envelope.
// Doubles the payload size and holds the file in memory on both ends;
// workable for small archives only.
type FileData struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	VideoID   string `json:"video_id"`
	FileHash  string `json:"file_hash"`
	FileSize  int64  `json:"file_size"`
	FileData  string `json:"file_data"`
}

type DownloadError struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

type VideoInfoRequest struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id"`
	VideoID   string `json:"video_id"`
}

type VideoInfoResponse struct {
	Type      string     `json:"type"`
	RequestID string     `json:"request_id"`
	Success   bool       `json:"success"`
	VideoInfo *VideoInfo `json:"video_info,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// VideoInfo is the enhanced metadata payload of a video_info_response.
type VideoInfo struct {
	VideoID     string              `json:"video_id"`
	Title       string              `json:"title"`
	PublishedAt string              `json:"published_at"`
	Duration    int                 `json:"duration"`
	Platforms   archive.Platforms   `json:"platforms"`
	NostrPosts  []json.RawMessage   `json:"nostr_posts"`
	Npubs       map[string][]string `json:"npubs"`
	SyncedAt    string              `json:"synced_at"`
	HasFile     bool                `json:"has_file"`
	FileSize    int64               `json:"file_size,omitempty"`
	FileHash    string              `json:"file_hash,omitempty"`
}

// Unknown preserves a message of an unrecognized type. Forward-compatible
// no-op: logged and ignored by the router.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func decodeAs[T any](raw []byte, kind string) (*T, error) {
	msg := new(T)
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("wire: decoding %s message: %w", kind, err)
	}
	return msg, nil
}

// Decode parses a raw payload into its concrete message struct.
func Decode(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("wire: decoding envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	switch env.Type {
	case TypeCatalog:
		return decodeAs[Catalog](raw, env.Type)
	case TypeSearch:
		return decodeAs[Search](raw, env.Type)
	case TypeSearchResult:
		return decodeAs[SearchResult](raw, env.Type)
	case TypeDownloadRequest:
		return decodeAs[DownloadRequest](raw, env.Type)
	case TypeFileData:
		return decodeAs[FileData](raw, env.Type)
	case TypeDownloadError:
		return decodeAs[DownloadError](raw, env.Type)
	case TypeVideoInfoRequest:
		return decodeAs[VideoInfoRequest](raw, env.Type)
	case TypeVideoInfoResponse:
		return decodeAs[VideoInfoResponse](raw, env.Type)
	default:
		return &Unknown{Type: env.Type, Raw: raw}, nil
	}
}
