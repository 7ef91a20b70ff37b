// Package app wires together core and transport layers.
package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bramvdv/tileverse-server/internal/config"
	"github.com/bramvdv/tileverse-server/internal/core"
	transporthttp "github.com/bramvdv/tileverse-server/internal/transport/http"
)

// App owns the hub and the HTTP server.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	catalog, err := core.LoadCatalog(cfg.WorldsPath)
	if err != nil {
		return nil, fmt.Errorf("load world catalog: %w", err)
	}
	lobby, err := core.LoadLobbyLayout(cfg.LobbyPath)
	if err != nil {
		return nil, fmt.Errorf("load lobby layout: %w", err)
	}

	hub := core.NewHub(core.Options{
		Catalog:      catalog,
		LobbyGrid:    lobby,
		HistoryLimit: cfg.HistoryLimit,
		StaleWindow:  cfg.StaleWindow,
		ChallengeTTL: cfg.ChallengeTTL,
		JoinPause:    cfg.JoinPause,
		Logger:       logger,
	})
	server := transporthttp.NewServer(hub, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

// Run starts the hub loop and the HTTP server, and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
