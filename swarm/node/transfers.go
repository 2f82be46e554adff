package node

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"decdata/catalog"
	"decdata/wire"
)

type TransferStatus string

const (
	TransferRequested TransferStatus = "requested"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

// Transfer is one requester-side download tracked by request id.
type Transfer struct {
	RequestID string
	VideoID   string
	PeerID    string
	StartTime time.Time
	Status    TransferStatus
}

type transferTable struct {
	mu sync.Mutex
	m  map[string]*Transfer
}

func newTransferTable() *transferTable {
	return &transferTable{m: make(map[string]*Transfer)}
}

func (t *transferTable) add(tr *Transfer) {
	t.mu.Lock()
	t.m[tr.RequestID] = tr
	t.mu.Unlock()
}

func (t *transferTable) setStatus(requestID string, status TransferStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.m[requestID]
	if !ok {
		return false
	}
	tr.Status = status
	return true
}

func (t *transferTable) get(requestID string) (Transfer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tr, ok := t.m[requestID]
	if !ok {
		return Transfer{}, false
	}
	return *tr, true
}

func (t *transferTable) snapshot() []Transfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Transfer, 0, len(t.m))
	for _, tr := range t.m {
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// Transfers returns all tracked transfers, oldest first.
func (n *Node) Transfers() []Transfer {
	return n.transfers.snapshot()
}

// Transfer returns one tracked transfer by request id.
func (n *Node) Transfer(requestID string) (Transfer, bool) {
	return n.transfers.get(requestID)
}

// Download acquires a video: already-present catalogs short-circuit, then
// the archive gets a chance to fetch from its upstream platform, then a peer
// transfer is started. Returns the transfer's request id, or "" when no peer
// transfer was needed.
func (n *Node) Download(ctx context.Context, videoID, peerID string) (string, error) {
	if n.Catalog.Has(videoID) {
		log.Infof("Video %s already in local catalog", videoID)
		return "", nil
	}

	ok, err := n.Archive.DownloadVideo(ctx, videoID)
	if err != nil {
		log.Errorf("Archive download of %s failed: %v", videoID, err)
	} else if ok {
		log.Infof("Archive accepted download of %s; it will appear after the next refresh", videoID)
		return "", nil
	}

	target := n.resolveDownloadPeer(videoID, peerID)
	if target == nil {
		if peerID != "" {
			return "", fmt.Errorf("node %s is not connected", peerID)
		}
		return "", fmt.Errorf("no connected node has video %s", videoID)
	}

	reqID := requestID(videoID)
	msg := &wire.DownloadRequest{
		Type:      wire.TypeDownloadRequest,
		RequestID: reqID,
		VideoID:   videoID,
	}
	if err := target.Send(msg); err != nil {
		return "", fmt.Errorf("sending download request to %s: %w", target.ID(), err)
	}

	n.transfers.add(&Transfer{
		RequestID: reqID,
		VideoID:   videoID,
		PeerID:    target.ID(),
		StartTime: time.Now(),
		Status:    TransferRequested,
	})
	log.Infof("Sent download request for %s to %s", videoID, target.ID())

	return reqID, nil
}

// resolveDownloadPeer picks the transfer source: the explicitly named peer,
// or the first connected peer advertising the video.
func (n *Node) resolveDownloadPeer(videoID, peerID string) Peer {
	if peerID != "" {
		return n.findPeer(peerID)
	}
	for _, p := range n.ConnectedPeers() {
		if n.PeerCatalogs.Contains(p.ID(), videoID) {
			return p
		}
	}
	return nil
}

// handleDownloadRequest serves a file to a peer, or a download_error naming
// why we can't.
func (n *Node) handleDownloadRequest(p Peer, msg *wire.DownloadRequest) {
	log.Infof("Received download request for %s from %s", msg.VideoID, p.ID())

	sendErr := func(reason string) {
		reply := &wire.DownloadError{
			Type:      wire.TypeDownloadError,
			RequestID: msg.RequestID,
			Error:     reason,
		}
		if err := p.Send(reply); err != nil {
			log.Errorf("Failed to send download error to %s: %v", p.ID(), err)
		}
	}

	if !n.Catalog.Has(msg.VideoID) {
		sendErr("Video not found")
		return
	}

	fc, err := n.Archive.GetVideoFileContent(context.Background(), msg.VideoID)
	if err != nil {
		log.Errorf("Failed to read file for %s: %v", msg.VideoID, err)
		sendErr("Video content not available")
		return
	}
	if fc == nil {
		sendErr("Video content not available")
		return
	}

	reply := &wire.FileData{
		Type:      wire.TypeFileData,
		RequestID: msg.RequestID,
		VideoID:   msg.VideoID,
		FileHash:  fc.Hash,
		FileSize:  fc.Size,
		FileData:  hex.EncodeToString(fc.Data),
	}
	if err := p.Send(reply); err != nil {
		log.Errorf("Failed to send file data to %s: %v", p.ID(), err)
		return
	}
	log.Infof("Sent file data for %s to %s (%d bytes)", msg.VideoID, p.ID(), fc.Size)
}

// handleFileData verifies a received file against its advertised SHA-256 and
// publishes the video locally. Verification failure marks the transfer
// failed and leaves the catalog untouched.
func (n *Node) handleFileData(p Peer, msg *wire.FileData) {
	data, err := hex.DecodeString(msg.FileData)
	if err != nil {
		log.Errorf("Failed to decode file data for %s from %s: %v", msg.VideoID, p.ID(), err)
		n.transfers.setStatus(msg.RequestID, TransferFailed)
		return
	}

	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != msg.FileHash {
		log.Errorf("File hash mismatch for %s from %s: got %s, want %s", msg.VideoID, p.ID(), got, msg.FileHash)
		n.transfers.setStatus(msg.RequestID, TransferFailed)
		return
	}

	log.Infof("Received file data for %s from %s (%d bytes)", msg.VideoID, p.ID(), len(data))

	if n.spool != nil {
		if err := n.spool.Put(msg.VideoID, data); err != nil {
			log.Errorf("Failed to spool file for %s: %v", msg.VideoID, err)
		}
	}

	if !n.Catalog.Has(msg.VideoID) {
		v, err := n.Archive.GetVideo(context.Background(), msg.VideoID)
		if err != nil {
			log.Errorf("Failed to get metadata for %s: %v", msg.VideoID, err)
		}

		e := &catalog.Entry{VideoID: msg.VideoID, FromPeer: p.ID()}
		if v != nil {
			e = catalog.EntryFromVideo(v)
			e.FromPeer = p.ID()
		}
		e.FileSize = msg.FileSize
		e.FileHash = msg.FileHash
		n.Catalog.Put(e)
		if n.index != nil {
			if err := n.index.Put(e); err != nil {
				log.Errorf("Failed to index %s: %v", msg.VideoID, err)
			}
		}
		log.Infof("Added %s to local catalog", msg.VideoID)
	}

	n.transfers.setStatus(msg.RequestID, TransferCompleted)
}

func (n *Node) handleDownloadError(p Peer, msg *wire.DownloadError) {
	log.Errorf("Download request %s failed at %s: %s", msg.RequestID, p.ID(), msg.Error)
	n.transfers.setStatus(msg.RequestID, TransferFailed)
}
