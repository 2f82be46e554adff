// Package catalog holds the node's two inventory tables: the local catalog
// of downloaded videos and the last-advertised catalogs of connected peers.
// Both are mutated from multiple peer connections and the sync loop, so all
// access goes through the mutex-guarded types here.
package catalog

import (
	"sort"
	"sync"

	"decdata/archive"
)

// Entry is one published local video. Entries are treated as immutable once
// stored; a refresh swaps in a whole new set instead of mutating in place.
type Entry struct {
	VideoID     string            `json:"video_id"`
	Title       string            `json:"title,omitempty"`
	PublishedAt string            `json:"published_at,omitempty"`
	Duration    int               `json:"duration,omitempty"`
	Platforms   archive.Platforms `json:"platforms,omitempty"`
	FileSize    int64             `json:"file_size,omitempty"`
	FileHash    string            `json:"file_hash,omitempty"`
	FromPeer    string            `json:"from_peer,omitempty"`
}

// EntryFromVideo builds a catalog entry from an archive metadata record.
func EntryFromVideo(v *archive.Video) *Entry {
	return &Entry{
		VideoID:     v.VideoID,
		Title:       v.Title,
		PublishedAt: v.PublishedAt,
		Duration:    v.Duration,
		Platforms:   v.Platforms,
	}
}

// Store is the local catalog: video id to entry.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

func (s *Store) Get(videoID string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[videoID]
}

func (s *Store) Has(videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[videoID]
	return ok
}

func (s *Store) Put(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.VideoID] = e
}

// Replace swaps the whole catalog for a new snapshot. Readers never observe
// a partially updated map.
func (s *Store) Replace(entries map[string]*Entry) {
	if entries == nil {
		entries = make(map[string]*Entry)
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
}

// IDs returns the catalog's video ids, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a shallow copy of the catalog map.
func (s *Store) Snapshot() map[string]*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*Entry, len(s.entries))
	for id, e := range s.entries {
		out[id] = e
	}
	return out
}

// Entries returns all entries sorted by video id.
func (s *Store) Entries() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

// PeerSet tracks the advertised inventory of each known peer. A catalog
// message replaces a peer's set wholesale; a disconnect removes it.
type PeerSet struct {
	mu     sync.RWMutex
	videos map[string]map[string]struct{}
}

func NewPeerSet() *PeerSet {
	return &PeerSet{videos: make(map[string]map[string]struct{})}
}

func (p *PeerSet) Replace(peerID string, videoIDs []string) {
	set := make(map[string]struct{}, len(videoIDs))
	for _, id := range videoIDs {
		set[id] = struct{}{}
	}
	p.mu.Lock()
	p.videos[peerID] = set
	p.mu.Unlock()
}

func (p *PeerSet) Remove(peerID string) {
	p.mu.Lock()
	delete(p.videos, peerID)
	p.mu.Unlock()
}

func (p *PeerSet) Known(peerID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.videos[peerID]
	return ok
}

func (p *PeerSet) Contains(peerID, videoID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.videos[peerID][videoID]
	return ok
}

// IDs returns a peer's advertised video ids, sorted. Nil when the peer is
// unknown.
func (p *PeerSet) IDs(peerID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set, ok := p.videos[peerID]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Peers returns the ids of all peers with a known catalog, sorted.
func (p *PeerSet) Peers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	peers := make([]string, 0, len(p.videos))
	for id := range p.videos {
		peers = append(peers, id)
	}
	sort.Strings(peers)
	return peers
}

// Diff returns the ids present in a and absent from b, sorted. Pure set
// difference: duplicates and input order don't matter.
func Diff(a, b []string) []string {
	have := make(map[string]struct{}, len(b))
	for _, id := range b {
		have[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(a))
	var out []string
	for _, id := range a {
		if _, ok := have[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
