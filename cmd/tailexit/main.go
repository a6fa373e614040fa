// main is the entry point of the tailexit application.
// It initializes the configuration, logger, database and tailscaled client,
// then runs the selected command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/config"
	"github.com/woozymasta/tailexit/internal/fake"
	"github.com/woozymasta/tailexit/internal/favorites"
	"github.com/woozymasta/tailexit/internal/logger"
	"github.com/woozymasta/tailexit/internal/maintenance"
	"github.com/woozymasta/tailexit/internal/storage"
	"github.com/woozymasta/tailexit/internal/tailnet"
)

// fakeSeed keeps generated development nodes stable between runs.
const fakeSeed = 1

func main() {
	cfg, cmd := config.Parse()

	logger.Setup(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	// tailscaled, or generated nodes for development
	var daemon favorites.Daemon
	if cfg.Daemon.FakeNodes > 0 {
		log.Warn().Int("count", cfg.Daemon.FakeNodes).Msg("Using generated exit nodes instead of tailscaled")
		daemon = fake.NewDaemon(fake.GenerateNodes(cfg.Daemon.FakeNodes, fakeSeed)...)
	} else {
		daemon = tailnet.New(cfg.Daemon.Socket, cfg.Daemon.Timeout)
	}

	manager := favorites.NewManager(store, daemon)

	if maintenance.Run(ctx, cfg, manager) {
		return
	}

	if err := run(ctx, cfg, cmd, manager); err != nil {
		stop()
		log.Error().Err(err).Str("command", cmd).Msg("Command failed")
		_ = store.Close()
		os.Exit(1)
	}
}
