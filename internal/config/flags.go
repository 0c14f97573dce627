package config

import (
	"flag"
	"os"
	"time"

	"github.com/localpdub/localpdub/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-f string   vault file path
//	-n string   device name announced to peers
//	-p int      sync responder port
//	-t int      discovery timeout in seconds
//	-s string   conflict strategy
//	-a string   sync auth mode (none, passphrase)
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-f", "-n", "-p", "-t", "-s", "-a"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.VaultPath, "f", cfg.VaultPath, "vault file path")
	fs.StringVar(&cfg.DeviceName, "n", cfg.DeviceName, "device name announced to peers")
	fs.IntVar(&cfg.SyncPort, "p", cfg.SyncPort, "sync responder port")
	discoveryTimeout := fs.Int("t", int(cfg.DiscoveryTimeout.Seconds()), "discovery timeout (in seconds)")
	fs.StringVar(&cfg.Strategy, "s", cfg.Strategy, "conflict strategy")
	fs.StringVar(&cfg.Auth, "a", cfg.Auth, "sync auth mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.DiscoveryTimeout = time.Duration(*discoveryTimeout) * time.Second
}
