package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(".env"); err != nil {
		logger.Warn("ignoring .env", "error", err)
	}

	config, err := loadConfig(configPath, logger)
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	configured, err := shared.LoggerFromConfig(config.Log)
	if err != nil {
		logger.Fatalf("invalid log configuration: %v", err)
	}
	logger = configured

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "spotx",
		Usage:    "Resolve Spotify links, URIs and searches to catalog JSON",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

// loadConfig reads path when it exists, falling back to defaults, then applies
// environment overrides and validates the result.
func loadConfig(path string, logger *log.Logger) (*shared.Config, error) {
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		} else {
			config = loaded
		}
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
