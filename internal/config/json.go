package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/localpdub/localpdub/internal/flagx"
	"github.com/localpdub/localpdub/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "300s"
// or as integer nanoseconds.
type JsonConfig struct {
	VaultPath        string         `json:"vault_path"`
	HistoryPath      string         `json:"history_path"`
	DeviceName       string         `json:"device_name"`
	SyncPort         int            `json:"sync_port"`
	DiscoveryTimeout timex.Duration `json:"discovery_timeout"`
	Strategy         string         `json:"strategy"`
	Auth             string         `json:"auth"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. Without either flag nothing happens; a named file that
// cannot be read or parsed panics. Only non-zero fields override the
// defaults.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.VaultPath != "" {
		cfg.VaultPath = jc.VaultPath
	}
	if jc.HistoryPath != "" {
		cfg.HistoryPath = jc.HistoryPath
	}
	if jc.DeviceName != "" {
		cfg.DeviceName = jc.DeviceName
	}
	if jc.SyncPort != 0 {
		cfg.SyncPort = jc.SyncPort
	}
	if jc.DiscoveryTimeout.Duration != 0 {
		cfg.DiscoveryTimeout = time.Duration(jc.DiscoveryTimeout.Duration)
	}
	if jc.Strategy != "" {
		cfg.Strategy = jc.Strategy
	}
	if jc.Auth != "" {
		cfg.Auth = jc.Auth
	}
}
