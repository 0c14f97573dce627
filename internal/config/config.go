// Package config assembles runtime settings for the LocalPDub CLI from
// defaults, an optional JSON file and command-line flags, in that order.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the LocalPDub CLI.
type Config struct {
	// VaultPath is the location of the encrypted vault file.
	VaultPath string
	// HistoryPath is the location of the sync journal database.
	HistoryPath string
	// DeviceName is the name announced to peers during discovery.
	DeviceName string
	// SyncPort is the TCP port the sync responder listens on.
	SyncPort int
	// DiscoveryTimeout bounds a discovery session.
	DiscoveryTimeout time.Duration
	// Strategy names the conflict strategy (newest_wins, local_wins,
	// remote_wins, duplicate, manual).
	Strategy string
	// Auth names the sync authentication mode (none, passphrase).
	Auth string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".localpdub")
	c.VaultPath = filepath.Join(dir, "vault.lpd")
	c.HistoryPath = filepath.Join(dir, "history.db")

	host, err := os.Hostname()
	if err != nil {
		host = "localpdub"
	}
	c.DeviceName = host

	c.SyncPort = 51820
	c.DiscoveryTimeout = 300 * time.Second
	c.Strategy = "newest_wins"
	c.Auth = "none"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
