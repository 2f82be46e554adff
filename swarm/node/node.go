// Package node implements the DecData peer node: catalog synchronization
// with the local archive, the peer message protocol, and file transfers.
package node

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	log "github.com/sirupsen/logrus"

	"decdata/archive"
	"decdata/catalog"
	"decdata/config"
	"decdata/datastore/leveldb"
	"decdata/datastore/spool"
	"decdata/helper/timer"
	"decdata/net/mdisco"
	"decdata/net/peerwire"
	"decdata/nodeid"
)

// Peer is one live connection as the node sees it. Implemented by
// peerwire.Peer; tests substitute their own.
type Peer interface {
	ID() string
	Inbound() bool
	Addr() string
	Send(msg any) error
	Close() error
}

type Node struct {
	id  string
	cfg *config.Config

	// Collaborators
	Archive archive.Gateway

	// State tables. Catalog and PeerCatalogs guard themselves; the peer
	// lists and the pending-info set are guarded by mu.
	Catalog      *catalog.Store
	PeerCatalogs *catalog.PeerSet
	transfers    *transferTable
	searches     *searchLog

	index *leveldb.CatalogIndex
	spool *spool.Spool

	mu          sync.Mutex
	inbound     []Peer
	outbound    []Peer
	pendingInfo map[string]struct{}

	syncInterval time.Duration
	sg           singleflight.Group
}

// New creates the node. index and sp may be nil; the node then runs purely
// in memory. A persisted index pre-seeds the catalog so peers can be served
// before the first archive refresh.
func New(cfg *config.Config, gateway archive.Gateway, index *leveldb.CatalogIndex, sp *spool.Spool) (*Node, error) {
	raw := cfg.Node.RawID
	if raw == "" {
		var err error
		raw, err = nodeid.Random()
		if err != nil {
			return nil, fmt.Errorf("generating node id: %w", err)
		}
	}

	n := &Node{
		id:           nodeid.Format(cfg.Node.Prefix, raw),
		cfg:          cfg,
		Archive:      gateway,
		Catalog:      catalog.NewStore(),
		PeerCatalogs: catalog.NewPeerSet(),
		transfers:    newTransferTable(),
		searches:     newSearchLog(maxRetainedSearches),
		index:        index,
		spool:        sp,
		pendingInfo:  make(map[string]struct{}),
		syncInterval: time.Duration(cfg.Sync.IntervalSeconds) * time.Second,
	}
	if n.syncInterval <= 0 {
		n.syncInterval = 300 * time.Second
	}

	if index != nil {
		entries, err := index.Enumerate()
		if err != nil {
			return nil, fmt.Errorf("loading catalog index: %w", err)
		}
		snapshot := make(map[string]*catalog.Entry, len(entries))
		for _, e := range entries {
			snapshot[e.VideoID] = e
		}
		n.Catalog.Replace(snapshot)
		log.Infof("Loaded %d catalog entries from index", len(entries))
	}

	log.Infof("I am %s", n.id)

	return n, nil
}

func (n *Node) ID() string {
	return n.id
}

// Run drives the node until the context is cancelled: the peer listener,
// the periodic catalog sync, discovery (when given) and bootstrap dials.
func (n *Node) Run(ctx context.Context, srv *peerwire.Server, disco *mdisco.Discovery) error {
	wg, cctx := errgroup.WithContext(ctx)

	if srv != nil {
		wg.Go(func() error {
			return srv.Serve(cctx)
		})
	}

	wg.Go(func() error {
		return n.runSyncLoop(cctx)
	})

	if disco != nil {
		wg.Go(func() error {
			interval := &timer.Interval{Duration: 30 * time.Second}
			return timer.RunWithTicker(cctx, interval, disco.Announce)
		})
		wg.Go(func() error {
			return disco.Listen(cctx, n.onDiscovered)
		})
	}

	wg.Go(func() error {
		for _, addr := range n.cfg.Network.BootstrapPeers {
			if _, err := n.ConnectTo(addr); err != nil {
				log.Errorf("Failed to connect to bootstrap peer %s: %v", addr, err)
			}
		}
		return nil
	})

	err := wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ConnectTo dials a remote node. The connection announces itself through
// the usual PeerConnected path, including the catalog push.
func (n *Node) ConnectTo(address string) (Peer, error) {
	p, err := peerwire.Dial(address, n.id, n.cfg.Network.MaxMessageBytes, n)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (n *Node) onDiscovered(nodeID, address string) {
	if n.findPeer(nodeID) != nil {
		return
	}
	log.Infof("Discovered node %s at %s", nodeID, address)
	if _, err := n.ConnectTo(address); err != nil {
		log.Errorf("Failed to connect to discovered node %s at %s: %v", nodeID, address, err)
	}
}

// PeerConnected, PeerMessage and PeerDisconnected adapt the transport's
// callbacks onto the node.

func (n *Node) PeerConnected(p *peerwire.Peer) {
	n.addPeer(p)
}

func (n *Node) PeerMessage(p *peerwire.Peer, raw []byte) {
	n.Dispatch(p, raw)
}

func (n *Node) PeerDisconnected(p *peerwire.Peer) {
	n.removePeer(p)
}

func (n *Node) addPeer(p Peer) {
	n.mu.Lock()
	if p.Inbound() {
		n.inbound = append(n.inbound, p)
		log.Infof("Node connected: %s", p.ID())
	} else {
		n.outbound = append(n.outbound, p)
		log.Infof("Connected to node: %s", p.ID())
	}
	n.mu.Unlock()

	n.sendCatalogTo(p)
}

func (n *Node) removePeer(p Peer) {
	n.mu.Lock()
	n.inbound = deletePeer(n.inbound, p)
	n.outbound = deletePeer(n.outbound, p)
	n.mu.Unlock()

	log.Infof("Node disconnected: %s", p.ID())
	n.PeerCatalogs.Remove(p.ID())
}

func deletePeer(peers []Peer, p Peer) []Peer {
	for i, q := range peers {
		if q == p {
			return append(peers[:i], peers[i+1:]...)
		}
	}
	return peers
}

// ConnectedPeers returns the current connections, inbound before outbound,
// each list in connection order.
func (n *Node) ConnectedPeers() []Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Peer, 0, len(n.inbound)+len(n.outbound))
	out = append(out, n.inbound...)
	out = append(out, n.outbound...)
	return out
}

// findPeer returns the connection with the given node id, inbound checked
// before outbound, or nil.
func (n *Node) findPeer(peerID string) Peer {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.inbound {
		if p.ID() == peerID {
			return p
		}
	}
	for _, p := range n.outbound {
		if p.ID() == peerID {
			return p
		}
	}
	return nil
}

// requestID derives a request id from the current time and a subject
// string. Not guaranteed collision-free under rapid concurrent calls;
// nothing correlates on it beyond the transfer table and logs.
func requestID(subject string) string {
	sum := md5.Sum(fmt.Appendf(nil, "%d-%s", time.Now().UnixNano(), subject))
	return hex.EncodeToString(sum[:])
}
