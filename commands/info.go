package commands

import (
	"context"

	log "github.com/sirupsen/logrus"

	"decdata/config"
	"decdata/datastore/leveldb"
	"decdata/datastore/spool"
	"decdata/nodeid"
)

// RunInfo prints the node identity and the persisted state without starting
// the node.
func RunInfo(ctx context.Context, cfg *config.Config) {
	if cfg.Node.RawID == "" {
		log.Warn("No node id in config; run init first")
	} else {
		log.Infof("Node id: %s", nodeid.Format(cfg.Node.Prefix, cfg.Node.RawID))
	}
	log.Infof("Listen address: %s", cfg.Network.ListenAddress)
	log.Infof("Archive API: %s", cfg.Archive.APIURL)

	index, err := leveldb.NewCatalogIndex(cfg.DataStore.CatalogIndexPath)
	if err != nil {
		log.Fatalf("Failed to open catalog index: %v", err)
	}
	defer index.Close()

	entries, err := index.Enumerate()
	if err != nil {
		log.Fatalf("Failed to enumerate catalog index: %v", err)
	}
	log.Infof("Catalog index: %d videos", len(entries))
	for _, e := range entries {
		origin := "local"
		if e.FromPeer != "" {
			origin = "via " + e.FromPeer
		}
		log.Infof("  %s  %s  (%s)", e.VideoID, e.Title, origin)
	}

	sp, err := spool.New(cfg.DataStore.SpoolPath)
	if err != nil {
		log.Fatalf("Failed to open spool: %v", err)
	}
	ids, err := sp.Enumerate()
	if err != nil {
		log.Fatalf("Failed to enumerate spool: %v", err)
	}
	log.Infof("Spool: %d files", len(ids))
}
