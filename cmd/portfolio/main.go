// Command portfolio runs the portfolio site and its admin tooling.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"portfolio-site/internal/config"
)

const appName = "portfolio"

// Set with -ldflags at build time.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Portfolio site with an admin area for projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(serveCmd(&logLevel))
	cmd.AddCommand(adminCmd(&logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

// setup loads configuration and returns a logger at the configured level.
func setup(flagLevel string) (*config.Config, *slog.Logger, error) {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if flagLevel != "" {
		cfg.LogLevel = flagLevel
	}
	level.Set(config.ParseLogLevel(cfg.LogLevel))
	return cfg, logger, nil
}
