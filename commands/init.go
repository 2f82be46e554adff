package commands

import (
	"context"

	log "github.com/sirupsen/logrus"

	"decdata/config"
	"decdata/nodeid"
)

// RunInit generates a fresh node identity and writes the default config.
func RunInit(ctx context.Context, cfg *config.Config) {
	raw, err := nodeid.Random()
	if err != nil {
		log.Fatalf("Failed to generate node id: %v", err)
	}
	cfg.Node.RawID = raw

	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to save config: %v", err)
	}

	log.Infof("Initialized node %s", nodeid.Format(cfg.Node.Prefix, raw))
}
