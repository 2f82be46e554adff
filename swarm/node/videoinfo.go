package node

import (
	"context"
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"decdata/archive"
	"decdata/catalog"
	"decdata/wire"
)

// RequestVideoInfo asks a peer for enhanced metadata about one video. At
// most one request per video id is outstanding at a time; the pending mark
// clears when a response names the video or the video turns up locally.
func (n *Node) RequestVideoInfo(p Peer, videoID string) {
	if !n.markPendingInfo(videoID) {
		log.Debugf("Video info request for %s already outstanding", videoID)
		return
	}

	msg := &wire.VideoInfoRequest{
		Type:      wire.TypeVideoInfoRequest,
		RequestID: requestID(videoID),
		VideoID:   videoID,
	}
	if err := p.Send(msg); err != nil {
		log.Errorf("Failed to send video info request to %s: %v", p.ID(), err)
		n.clearPendingInfo(videoID)
		return
	}
	log.Infof("Requested video info for %s from %s", videoID, p.ID())
}

func (n *Node) markPendingInfo(videoID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.pendingInfo[videoID]; ok {
		return false
	}
	n.pendingInfo[videoID] = struct{}{}
	return true
}

func (n *Node) clearPendingInfo(videoID string) {
	n.mu.Lock()
	delete(n.pendingInfo, videoID)
	n.mu.Unlock()
}

// clearPendingInfoLocal drops pending marks for videos now in the local
// catalog. Called after each refresh so a lost response can't wedge a video
// forever: the mark clears once the video arrives by any route.
func (n *Node) clearPendingInfoLocal() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id := range n.pendingInfo {
		if n.Catalog.Has(id) {
			delete(n.pendingInfo, id)
		}
	}
}

// handleVideoInfoRequest answers with the archive's metadata, falling back
// to the catalog entry, or a failure response when the video is unknown.
func (n *Node) handleVideoInfoRequest(p Peer, msg *wire.VideoInfoRequest) {
	log.Infof("Received video info request for %s from %s", msg.VideoID, p.ID())

	ctx := context.Background()

	var info *wire.VideoInfo
	v, err := n.Archive.GetVideo(ctx, msg.VideoID)
	if err != nil {
		log.Errorf("Failed to get metadata for %s: %v", msg.VideoID, err)
	}
	if v != nil {
		info = videoInfoFromVideo(v)
	} else if e := n.Catalog.Get(msg.VideoID); e != nil {
		info = videoInfoFromEntry(e)
	}

	if info == nil {
		reply := &wire.VideoInfoResponse{
			Type:      wire.TypeVideoInfoResponse,
			RequestID: msg.RequestID,
			Success:   false,
			Error:     "Video not found",
		}
		if err := p.Send(reply); err != nil {
			log.Errorf("Failed to send video info response to %s: %v", p.ID(), err)
		}
		return
	}

	if e := n.Catalog.Get(msg.VideoID); e != nil && e.Platforms.YouTube != nil && e.Platforms.YouTube.Downloaded {
		info.HasFile = true
		fc, err := n.Archive.GetVideoFileContent(ctx, msg.VideoID)
		if err != nil {
			log.Errorf("Failed to get file info for %s: %v", msg.VideoID, err)
		} else if fc != nil {
			info.FileSize = fc.Size
			info.FileHash = fc.Hash
		}
	}

	reply := &wire.VideoInfoResponse{
		Type:      wire.TypeVideoInfoResponse,
		RequestID: msg.RequestID,
		Success:   true,
		VideoInfo: info,
	}
	if err := p.Send(reply); err != nil {
		log.Errorf("Failed to send video info response to %s: %v", p.ID(), err)
		return
	}
	log.Infof("Sent video info for %s to %s", msg.VideoID, p.ID())
}

func videoInfoFromVideo(v *archive.Video) *wire.VideoInfo {
	return &wire.VideoInfo{
		VideoID:     v.VideoID,
		Title:       v.Title,
		PublishedAt: v.PublishedAt,
		Duration:    v.Duration,
		Platforms:   v.Platforms,
		NostrPosts:  v.NostrPosts,
		Npubs:       v.Npubs,
		SyncedAt:    v.SyncedAt,
	}
}

func videoInfoFromEntry(e *catalog.Entry) *wire.VideoInfo {
	return &wire.VideoInfo{
		VideoID:     e.VideoID,
		Title:       e.Title,
		PublishedAt: e.PublishedAt,
		Duration:    e.Duration,
		Platforms:   e.Platforms,
	}
}

// handleVideoInfoResponse merges a peer's metadata into the catalog and
// pushes it into the archive. One-way merge: peer data fills gaps, the
// local archive is never overwritten into a less-downloaded state.
func (n *Node) handleVideoInfoResponse(p Peer, msg *wire.VideoInfoResponse) {
	if !msg.Success {
		reason := msg.Error
		if reason == "" {
			reason = "unknown error"
		}
		log.Errorf("Video info request failed at %s: %s", p.ID(), reason)
		return
	}

	info := msg.VideoInfo
	if info == nil || info.VideoID == "" {
		log.Errorf("Dropping video info response without video info from %s", p.ID())
		return
	}

	n.clearPendingInfo(info.VideoID)
	log.Infof("Received video info for %s from %s", info.VideoID, p.ID())

	// Already-cataloged videos keep their local state: a response that
	// raced a refresh or file transfer, or an unsolicited one, must not
	// push the peer's copy into the archive.
	if n.Catalog.Has(info.VideoID) {
		log.Debugf("Already have %s, ignoring video info from %s", info.VideoID, p.ID())
		return
	}

	e := &catalog.Entry{
		VideoID:     info.VideoID,
		Title:       info.Title,
		PublishedAt: info.PublishedAt,
		Duration:    info.Duration,
		Platforms:   info.Platforms,
		FromPeer:    p.ID(),
	}
	n.Catalog.Put(e)
	if n.index != nil {
		if err := n.index.Put(e); err != nil {
			log.Errorf("Failed to index %s: %v", info.VideoID, err)
		}
	}
	log.Infof("Added %s to local catalog (via %s)", info.VideoID, p.ID())

	n.mergeIntoArchive(p, info)
}

func (n *Node) mergeIntoArchive(p Peer, info *wire.VideoInfo) {
	ctx := context.Background()

	fields := map[string]any{
		"title":        info.Title,
		"published_at": info.PublishedAt,
		"duration":     info.Duration,
	}
	if len(info.Npubs) > 0 {
		fields["npubs"] = info.Npubs
	}
	if len(info.NostrPosts) > 0 {
		fields["nostr_posts"] = info.NostrPosts
	}
	if info.SyncedAt != "" {
		fields["synced_at"] = info.SyncedAt
	}
	if ok, err := n.Archive.UpdateMetadata(ctx, info.VideoID, fields); err != nil {
		log.Errorf("Failed to update metadata for %s: %v", info.VideoID, err)
	} else if ok {
		log.Infof("Updated archive metadata for %s", info.VideoID)
	}

	downloaded := false
	if yt := info.Platforms.YouTube; yt != nil {
		downloaded = yt.Downloaded
		ytURL := yt.URL
		if ytURL == "" {
			ytURL = "https://www.youtube.com/watch?v=" + info.VideoID
		}
		var data json.RawMessage
		if len(yt.Data) > 0 {
			data = yt.Data
		}
		if ok, err := n.Archive.CreateYouTubePlatform(ctx, info.VideoID, ytURL, data, yt.Downloaded, yt.DownloadedAt); err != nil {
			log.Errorf("Failed to create youtube platform for %s: %v", info.VideoID, err)
		} else if ok {
			log.Infof("Created youtube platform record for %s", info.VideoID)
		}
	}

	if nm := info.Platforms.Nostrmedia; nm != nil && nm.URL != "" {
		if ok, err := n.Archive.SetNostrmediaURL(ctx, info.VideoID, nm.URL, nm.Hash, nm.UploadedAt); err != nil {
			log.Errorf("Failed to set nostrmedia url for %s: %v", info.VideoID, err)
		} else if ok {
			log.Infof("Recorded nostrmedia url for %s", info.VideoID)
		}
	}

	if info.HasFile && !downloaded {
		log.Infof("%s has the file for %s; download it with: download %s %s", p.ID(), info.VideoID, info.VideoID, p.ID())
	}
}
