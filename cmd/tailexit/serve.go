package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/tailexit/internal/config"
	"github.com/woozymasta/tailexit/internal/favorites"
	"github.com/woozymasta/tailexit/internal/server"
)

// runServe runs the HTTP API until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, m *favorites.Manager) error {
	log.Info().Msg("Starting tailexit API...")

	srvHandler := server.New(m, cfg)
	handler := srvHandler.Handler()
	srvHandler.StartWorkers()

	// event streams stay open, so no write timeout
	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		srvHandler.StopWorkers()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")

	// Stop workers first so open event streams return
	srvHandler.StopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}
