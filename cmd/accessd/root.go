package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-access/internal/config"
	"github.com/mind-engage/mindengage-access/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "accessd",
		Short: "Quiz admission control service",
		Long: `accessd decides whether a user may start, continue or preview a quiz,
and why not when they may not.

Configuration is read from the environment (and .env when present).`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newEvaluateCmd(), newSchemaCmd())
	return root
}

// loadConfig parses the environment and builds the process logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
