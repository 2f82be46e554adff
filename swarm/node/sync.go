package node

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"decdata/catalog"
	"decdata/helper/timer"
	"decdata/wire"
)

const listPageSize = 100

func (n *Node) runSyncLoop(ctx context.Context) error {
	interval := &timer.Interval{Duration: n.syncInterval}
	return timer.RunWithRetry(ctx, interval, time.Minute, n.Refresh)
}

// Refresh rebuilds the local catalog from the archive. Concurrent calls
// (console command racing the periodic loop) collapse into one pass.
func (n *Node) Refresh(ctx context.Context) error {
	_, err, _ := n.sg.Do("refresh", func() (any, error) {
		return nil, n.refreshLocalCatalog(ctx)
	})
	return err
}

// refreshLocalCatalog pages through the archive's video list and replaces
// the catalog wholesale with the downloaded videos. Videos that dropped out
// of the archive drop out of the catalog with it.
func (n *Node) refreshLocalCatalog(ctx context.Context) error {
	entries := make(map[string]*catalog.Entry)
	fetched := 0
	for offset := 0; ; offset += listPageSize {
		res, err := n.Archive.ListVideos(ctx, listPageSize, offset, "published_at", "desc")
		if err != nil {
			return fmt.Errorf("listing archive videos: %w", err)
		}
		if len(res.Videos) == 0 {
			break
		}

		fetched += len(res.Videos)
		for _, v := range res.Videos {
			if v.VideoID == "" || !v.Downloaded() {
				continue
			}
			entries[v.VideoID] = catalog.EntryFromVideo(v)
		}
		log.Debugf("Fetched %d/%d videos from archive", fetched, res.Total)

		if fetched >= res.Total || len(res.Videos) < listPageSize {
			break
		}
	}

	n.Catalog.Replace(entries)
	n.clearPendingInfoLocal()

	if n.index != nil {
		if err := n.index.ReplaceAll(entries); err != nil {
			log.Errorf("Failed to persist catalog index: %v", err)
		}
	}

	log.Infof("Catalog refreshed: %d downloaded videos (%d listed)", len(entries), fetched)
	return nil
}

// sendCatalogTo pushes our full catalog to one peer. When we already hold
// the peer's catalog, the videos only we have are logged; requesting the
// ones only they have is the receiver's job.
func (n *Node) sendCatalogTo(p Peer) {
	ids := n.Catalog.IDs()
	msg := &wire.Catalog{
		Type:   wire.TypeCatalog,
		NodeID: n.id,
		Videos: ids,
	}
	if err := p.Send(msg); err != nil {
		log.Errorf("Failed to send catalog to %s: %v", p.ID(), err)
		return
	}
	log.Infof("Sent catalog with %d videos to %s", len(ids), p.ID())

	if n.PeerCatalogs.Known(p.ID()) {
		if ours := catalog.Diff(ids, n.PeerCatalogs.IDs(p.ID())); len(ours) > 0 {
			log.Infof("We have %d videos that %s doesn't have", len(ours), p.ID())
		}
	}
}
