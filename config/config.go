package config

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Config holds the node configuration, persisted as a JSON file.
type Config struct {
	configFile string

	Node struct {
		// Prefix is prepended to the raw id before formatting to the
		// fixed 30-character wire id.
		Prefix string `json:"prefix"`
		RawID  string `json:"raw_id"`
	} `json:"node"`

	Network struct {
		ListenAddress string `json:"listen"`
		// BootstrapPeers are dialed on startup, "host:port" each.
		BootstrapPeers []string `json:"bootstrap_peers"`
		// MaxMessageBytes caps one wire message. Hex-encoded files
		// travel as single messages, so this bounds the largest
		// transferable file at roughly half this value.
		MaxMessageBytes int `json:"max_message_bytes"`

		Discovery struct {
			Enabled          bool   `json:"enabled"`
			MulticastAddress string `json:"multicast_address"`
		} `json:"discovery"`
	} `json:"network"`

	Archive struct {
		APIURL string `json:"api_url"`
	} `json:"archive"`

	Sync struct {
		IntervalSeconds int `json:"interval_seconds"`
	} `json:"sync"`

	DataStore struct {
		CatalogIndexPath string `json:"catalog_index"`
		SpoolPath        string `json:"spool"`
	} `json:"datastore"`
}

// NewEmptyConfig generates a new configuration with default settings.
func NewEmptyConfig(configFile string) *Config {
	cfg := &Config{}

	cfg.configFile = configFile

	cfg.Node.Prefix = "decdata-"

	cfg.Network.ListenAddress = ":2122"
	cfg.Network.MaxMessageBytes = 256 << 20
	cfg.Network.Discovery.Enabled = false
	cfg.Network.Discovery.MulticastAddress = "224.0.0.122:2123"

	cfg.Archive.APIURL = "http://localhost:2121/api"

	cfg.Sync.IntervalSeconds = 300

	cfg.DataStore.CatalogIndexPath = "/tmp/decdata/catalog-index"
	cfg.DataStore.SpoolPath = "/tmp/decdata/spool"

	return cfg
}

func NewConfigFromFile(configFile string) (*Config, error) {
	cfg := NewEmptyConfig(configFile)
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves the configuration to a file
func (c *Config) Save() error {
	log.Infof("Saving config to %s", c.configFile)

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.configFile, data, 0644)
}

func (c *Config) Load() error {
	log.Infof("Loading config from %s", c.configFile)
	data, err := os.ReadFile(c.configFile)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	return nil
}
