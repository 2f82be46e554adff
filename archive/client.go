// Package archive implements the client for the local archive store's REST
// API. The node reads its catalog from here and writes back metadata learned
// from peers.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Gateway is the synchronous contract the node consumes. All calls are
// request/response; a nil result without error means "not found".
type Gateway interface {
	ListVideos(ctx context.Context, limit, offset int, sortBy, sortOrder string) (*ListResponse, error)
	GetVideo(ctx context.Context, videoID string) (*Video, error)
	GetVideoFileContent(ctx context.Context, videoID string) (*FileContent, error)
	DownloadVideo(ctx context.Context, videoID string) (bool, error)
	UpdateMetadata(ctx context.Context, videoID string, fields map[string]any) (bool, error)
	CreateYouTubePlatform(ctx context.Context, videoID, youtubeURL string, data json.RawMessage, downloaded bool, downloadedAt string) (bool, error)
	SetNostrmediaURL(ctx context.Context, videoID, mediaURL, hash, uploadedAt string) (bool, error)
}

var _ Gateway = (*Client)(nil)

type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(apiURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(apiURL, "/"),
		// Whole files travel in one response, so the timeout is generous.
		httpc: &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) (int, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("archive: GET %s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("archive: GET %s: decoding response: %w", path, err)
	}
	return resp.StatusCode, nil
}

// postSuccess POSTs a JSON body and reports the archive's {"success": bool}.
func (c *Client) postSuccess(ctx context.Context, path string, body any) (bool, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("archive: POST %s: unexpected status %s", path, resp.Status)
	}

	var out struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("archive: POST %s: decoding response: %w", path, err)
	}
	return out.Success, nil
}

// ListVideos returns one page of the archive's video listing.
func (c *Client) ListVideos(ctx context.Context, limit, offset int, sortBy, sortOrder string) (*ListResponse, error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if sortBy != "" {
		q.Set("sort_by", sortBy)
	}
	if sortOrder != "" {
		q.Set("sort_order", sortOrder)
	}

	res := &ListResponse{}
	if _, err := c.getJSON(ctx, "/videos", q, res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetVideo fetches a single video's metadata. Returns (nil, nil) when the
// archive doesn't know the id.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	v := &Video{}
	status, err := c.getJSON(ctx, "/videos/"+url.PathEscape(videoID), nil, v)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return v, nil
}

// GetVideoFileContent fetches the raw file bytes for a downloaded video and
// computes their SHA-256. Returns (nil, nil) when the video is unknown, not
// downloaded, or the file is missing.
func (c *Client) GetVideoFileContent(ctx context.Context, videoID string) (*FileContent, error) {
	v, err := c.GetVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		log.Debugf("archive: video %s not found", videoID)
		return nil, nil
	}
	if !v.Downloaded() {
		log.Debugf("archive: video %s is not downloaded", videoID)
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos/"+url.PathEscape(videoID)+"/file", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.Debugf("archive: file for video %s not found", videoID)
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("archive: GET /videos/%s/file: unexpected status %s", videoID, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: reading file for video %s: %w", videoID, err)
	}

	sum := sha256.Sum256(data)
	return &FileContent{
		VideoID: videoID,
		Data:    data,
		Hash:    hex.EncodeToString(sum[:]),
		Size:    int64(len(data)),
	}, nil
}

// DownloadVideo asks the archive to fetch the video from its upstream
// platform. Completion is asynchronous: the video shows up in a later
// catalog refresh.
func (c *Client) DownloadVideo(ctx context.Context, videoID string) (bool, error) {
	body := map[string]any{"quality": "best"}
	return c.postSuccess(ctx, "/videos/"+url.PathEscape(videoID)+"/platforms/youtube/download", body)
}

// UpdateMetadata upserts basic metadata fields for a video.
func (c *Client) UpdateMetadata(ctx context.Context, videoID string, fields map[string]any) (bool, error) {
	return c.postSuccess(ctx, "/videos/"+url.PathEscape(videoID)+"/update-metadata", fields)
}

// CreateYouTubePlatform upserts the youtube platform record for a video.
func (c *Client) CreateYouTubePlatform(ctx context.Context, videoID, youtubeURL string, data json.RawMessage, downloaded bool, downloadedAt string) (bool, error) {
	body := map[string]any{
		"url":        youtubeURL,
		"downloaded": downloaded,
	}
	if downloadedAt != "" {
		body["downloaded_at"] = downloadedAt
	}
	if len(data) > 0 {
		body["data"] = data
	}
	return c.postSuccess(ctx, "/videos/"+url.PathEscape(videoID)+"/platforms/youtube", body)
}

// SetNostrmediaURL records an already-uploaded nostrmedia URL for a video.
func (c *Client) SetNostrmediaURL(ctx context.Context, videoID, mediaURL, hash, uploadedAt string) (bool, error) {
	body := map[string]any{"url": mediaURL}
	if hash != "" {
		body["hash"] = hash
	}
	if uploadedAt != "" {
		body["uploaded_at"] = uploadedAt
	}
	return c.postSuccess(ctx, "/videos/"+url.PathEscape(videoID)+"/platforms/nostrmedia", body)
}
