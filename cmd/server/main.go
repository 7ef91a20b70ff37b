package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bramvdv/tileverse-server/internal/app"
	"github.com/bramvdv/tileverse-server/internal/config"
	"github.com/bramvdv/tileverse-server/internal/log"
)

func main() {
	var configPath string
	var overrides config.Config

	rootCmd := &cobra.Command{
		Use:   "tileverse-server",
		Short: "Multiplayer tile-world server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Env vars beat the config file; .env feeds them for local runs.
			_ = godotenv.Load()

			bootLogger := log.New("info")
			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting tileverse server")

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	rootCmd.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	rootCmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&overrides.WorldsPath, "worlds", "", "world catalog file")
	rootCmd.Flags().StringVar(&overrides.LobbyPath, "lobby", "", "lobby layout file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
