package node

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"decdata/catalog"
	"decdata/wire"
)

const maxRetainedSearches = 32

// searchLog retains the results of recent searches for the console. Bounded:
// the oldest search is evicted once the limit is reached. Results for a
// search keep arriving as peers answer; per-search they accumulate.
type searchLog struct {
	mu      sync.Mutex
	limit   int
	order   []string
	results map[string][]*catalog.Entry
}

func newSearchLog(limit int) *searchLog {
	return &searchLog{
		limit:   limit,
		results: make(map[string][]*catalog.Entry),
	}
}

func (s *searchLog) open(searchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[searchID]; ok {
		return
	}
	if len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.results, oldest)
	}
	s.order = append(s.order, searchID)
	s.results[searchID] = nil
}

func (s *searchLog) add(searchID string, entries []*catalog.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[searchID]; !ok {
		// Result for a search we never opened or already evicted
		return
	}
	s.results[searchID] = append(s.results[searchID], entries...)
}

func (s *searchLog) get(searchID string) []*catalog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*catalog.Entry(nil), s.results[searchID]...)
}

// Search broadcasts a query to every connected peer and returns the search
// id. Fire-and-forget: results arrive asynchronously and are retained for
// SearchResults.
func (n *Node) Search(query, videoID string) string {
	searchID := requestID(query + "-" + videoID)
	n.searches.open(searchID)

	msg := &wire.Search{
		Type:     wire.TypeSearch,
		SearchID: searchID,
		Query:    query,
		VideoID:  videoID,
	}

	peers := n.ConnectedPeers()
	for _, p := range peers {
		if err := p.Send(msg); err != nil {
			log.Errorf("Failed to send search to %s: %v", p.ID(), err)
		}
	}
	log.Infof("Sent search request to %d nodes", len(peers))

	return searchID
}

// SearchResults returns the results received so far for a search.
func (n *Node) SearchResults(searchID string) []*catalog.Entry {
	return n.searches.get(searchID)
}

// handleSearch answers from the local catalog: exact video id match, or
// case-insensitive title substring. Always replies, even with no matches.
func (n *Node) handleSearch(p Peer, msg *wire.Search) {
	results := make([]*catalog.Entry, 0)
	switch {
	case msg.VideoID != "":
		if e := n.Catalog.Get(msg.VideoID); e != nil {
			results = append(results, e)
		}
	case msg.Query != "":
		q := strings.ToLower(msg.Query)
		for _, e := range n.Catalog.Entries() {
			if strings.Contains(strings.ToLower(e.Title), q) {
				results = append(results, e)
			}
		}
	}

	reply := &wire.SearchResult{
		Type:     wire.TypeSearchResult,
		SearchID: msg.SearchID,
		NodeID:   n.id,
		Results:  results,
	}
	if err := p.Send(reply); err != nil {
		log.Errorf("Failed to send search results to %s: %v", p.ID(), err)
		return
	}
	log.Infof("Sent %d search results to %s", len(results), p.ID())
}

func (n *Node) handleSearchResult(p Peer, msg *wire.SearchResult) {
	log.Infof("Received %d search results from %s", len(msg.Results), msg.NodeID)
	for _, e := range msg.Results {
		log.Infof("  %s: %s", e.VideoID, e.Title)
	}
	n.searches.add(msg.SearchID, msg.Results)
}
