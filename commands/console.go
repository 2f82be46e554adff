package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"decdata/catalog"
	"decdata/swarm/node"
)

const consoleHelp = `Commands:
  peers                        list connected nodes
  catalog                      show the local catalog
  peercatalog <node_id>        show a node's advertised catalog
  search <query>               search all nodes by title
  download <video_id> [node]   download a video (archive first, then nodes)
  transfers                    show tracked transfers
  info                         show this node's identity and counters
  connect <host:port>          connect to a node
  refresh                      refresh the local catalog now
  help                         this text
  quit                         shut down`

// runConsole reads commands from stdin until EOF or quit, then cancels the
// node's context.
func runConsole(ctx context.Context, n *node.Node, cancel context.CancelFunc) {
	fmt.Println(consoleHelp)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "peers":
			peers := n.ConnectedPeers()
			fmt.Printf("%d connected nodes\n", len(peers))
			for _, p := range peers {
				dir := "outbound"
				if p.Inbound() {
					dir = "inbound"
				}
				fmt.Printf("  %s  %s  %s\n", p.ID(), p.Addr(), dir)
			}

		case "catalog":
			entries := n.Catalog.Entries()
			fmt.Printf("%d videos in local catalog\n", len(entries))
			for _, e := range entries {
				fmt.Printf("  %s  %s\n", e.VideoID, e.Title)
			}

		case "peercatalog":
			if len(fields) < 2 {
				fmt.Println("usage: peercatalog <node_id>")
				continue
			}
			ids := n.PeerCatalogs.IDs(fields[1])
			if ids == nil {
				fmt.Printf("no catalog known for %s\n", fields[1])
				continue
			}
			fmt.Printf("%d videos advertised by %s\n", len(ids), fields[1])
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}

		case "search":
			if len(fields) < 2 {
				fmt.Println("usage: search <query>")
				continue
			}
			searchID := n.Search(strings.Join(fields[1:], " "), "")
			// Results are fire-and-forget; poll briefly instead of
			// blocking the console for the full window
			var results []*catalog.Entry
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				time.Sleep(200 * time.Millisecond)
				if results = n.SearchResults(searchID); len(results) > 0 {
					break
				}
			}
			fmt.Printf("%d results\n", len(results))
			for _, e := range results {
				fmt.Printf("  %s  %s\n", e.VideoID, e.Title)
			}

		case "download":
			if len(fields) < 2 {
				fmt.Println("usage: download <video_id> [node_id]")
				continue
			}
			peerID := ""
			if len(fields) > 2 {
				peerID = fields[2]
			}
			reqID, err := n.Download(ctx, fields[1], peerID)
			if err != nil {
				fmt.Printf("download failed: %v\n", err)
				continue
			}
			if reqID == "" {
				fmt.Println("no transfer needed")
				continue
			}
			fmt.Printf("transfer started, request id %s\n", reqID)

		case "transfers":
			transfers := n.Transfers()
			fmt.Printf("%d transfers\n", len(transfers))
			for _, tr := range transfers {
				fmt.Printf("  %s  %s  from %s  %s  %s\n",
					tr.RequestID, tr.VideoID, tr.PeerID, tr.Status, tr.StartTime.Format(time.RFC3339))
			}

		case "info":
			fmt.Printf("node id: %s\n", n.ID())
			fmt.Printf("catalog: %d videos\n", n.Catalog.Len())
			fmt.Printf("connected nodes: %d\n", len(n.ConnectedPeers()))
			fmt.Printf("known node catalogs: %d\n", len(n.PeerCatalogs.Peers()))

		case "connect":
			if len(fields) < 2 {
				fmt.Println("usage: connect <host:port>")
				continue
			}
			p, err := n.ConnectTo(fields[1])
			if err != nil {
				fmt.Printf("connect failed: %v\n", err)
				continue
			}
			fmt.Printf("connected to %s\n", p.ID())

		case "refresh":
			if err := n.Refresh(ctx); err != nil {
				fmt.Printf("refresh failed: %v\n", err)
				continue
			}
			fmt.Printf("%d videos in local catalog\n", n.Catalog.Len())

		case "help":
			fmt.Println(consoleHelp)

		case "quit", "exit":
			cancel()
			return

		default:
			fmt.Printf("unknown command %q, try help\n", fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		log.Errorf("Console read error: %v", err)
	}
	cancel()
}
