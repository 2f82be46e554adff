package commands

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"decdata/archive"
	"decdata/config"
	"decdata/datastore/leveldb"
	"decdata/datastore/spool"
	"decdata/net/mdisco"
	"decdata/net/peerwire"
	"decdata/swarm/node"
)

// RunServe wires up and runs the node until SIGINT/SIGTERM. With interactive
// set, a stdin console is attached for searches and downloads.
func RunServe(ctx context.Context, cfg *config.Config, interactive bool) {
	gateway := archive.NewClient(cfg.Archive.APIURL)

	index, err := leveldb.NewCatalogIndex(cfg.DataStore.CatalogIndexPath)
	if err != nil {
		log.Fatalf("Failed to open catalog index: %v", err)
	}
	defer index.Close()

	sp, err := spool.New(cfg.DataStore.SpoolPath)
	if err != nil {
		log.Fatalf("Failed to open spool: %v", err)
	}

	n, err := node.New(cfg, gateway, index, sp)
	if err != nil {
		log.Fatalf("Failed to create node: %v", err)
	}

	l, err := net.Listen("tcp", cfg.Network.ListenAddress)
	if err != nil {
		log.Fatalf("Failed to create peer listener: %v", err)
	}
	srv := peerwire.NewServer(l, n.ID(), cfg.Network.MaxMessageBytes, n)
	log.Infof("Listening for nodes on %s", srv.Addr())

	var disco *mdisco.Discovery
	if cfg.Network.Discovery.Enabled {
		disco, err = mdisco.New(cfg.Network.Discovery.MulticastAddress, n.ID(), cfg.Network.ListenAddress)
		if err != nil {
			log.Fatalf("Failed to join discovery group: %v", err)
		}
		defer disco.Close()
		log.Infof("Discovery enabled on %s", cfg.Network.Discovery.MulticastAddress)
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigc
		log.Infof("Received %s, shutting down", s)
		cancel()
	}()

	if interactive {
		go runConsole(cctx, n, cancel)
	}

	done := make(chan error, 1)
	go func() {
		done <- n.Run(cctx, srv, disco)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Errorf("Node stopped: %v", err)
		}
	case <-cctx.Done():
		// Bounded wait for the sync loop and connections to wind down
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			log.Warn("Shutdown timed out, exiting anyway")
		}
	}
}
