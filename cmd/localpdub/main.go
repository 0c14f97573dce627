package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/localpdub/localpdub/internal/cli"
	"github.com/localpdub/localpdub/internal/config"
	"github.com/localpdub/localpdub/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()
	log := logging.NewTextLogger(os.Stderr, slog.LevelWarn)

	app, err := cli.NewApp(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "localpdub: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "localpdub: %v\n", err)
		os.Exit(1)
	}
}
