package node

import (
	log "github.com/sirupsen/logrus"

	"decdata/catalog"
	"decdata/wire"
)

// Dispatch routes one raw message from a peer. Malformed and unknown
// messages are logged and dropped; the connection stays up.
func (n *Node) Dispatch(p Peer, raw []byte) {
	msg, err := wire.Decode(raw)
	if err != nil {
		log.Errorf("Dropping malformed message from %s: %v", p.ID(), err)
		return
	}

	switch m := msg.(type) {
	case *wire.Catalog:
		n.handleCatalog(p, m)
	case *wire.Search:
		n.handleSearch(p, m)
	case *wire.SearchResult:
		n.handleSearchResult(p, m)
	case *wire.DownloadRequest:
		n.handleDownloadRequest(p, m)
	case *wire.FileData:
		n.handleFileData(p, m)
	case *wire.DownloadError:
		n.handleDownloadError(p, m)
	case *wire.VideoInfoRequest:
		n.handleVideoInfoRequest(p, m)
	case *wire.VideoInfoResponse:
		n.handleVideoInfoResponse(p, m)
	case *wire.Unknown:
		log.Infof("Ignoring unknown message type %q from %s", m.Type, p.ID())
	}
}

// handleCatalog replaces our view of the peer's catalog and requests video
// info for everything they have that we don't.
func (n *Node) handleCatalog(p Peer, msg *wire.Catalog) {
	if msg.NodeID == "" {
		log.Errorf("Dropping catalog without node_id from %s", p.Addr())
		return
	}

	n.PeerCatalogs.Replace(msg.NodeID, msg.Videos)
	log.Infof("Received catalog with %d videos from %s", len(msg.Videos), msg.NodeID)

	missing := catalog.Diff(msg.Videos, n.Catalog.IDs())
	if len(missing) == 0 {
		log.Infof("%s has no videos that we don't have", msg.NodeID)
		return
	}

	log.Infof("%s has %d videos that we don't have", msg.NodeID, len(missing))
	for _, id := range missing {
		n.RequestVideoInfo(p, id)
	}
}
