package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/JonMunkholm/geobuild/internal/cli"
	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration", "config", cfg.String())

	if err := cli.Serve(context.Background(), cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
