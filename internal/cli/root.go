// Package cli defines the registry command line: serve and migrate.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/package-registry/internal/config"
	"github.com/sakif/package-registry/internal/logger"
)

// NewRootCommand builds the "registry" command tree.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "registry",
		Short:        "Package registry account and engagement API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./config.yaml or ./configs/config.yaml)")

	load := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		log := logger.New(logger.Options{Level: cfg.Logger.Level, Format: cfg.Logger.Format}, os.Stderr)
		slog.SetDefault(log)
		return cfg, log, nil
	}

	root.AddCommand(
		newServeCommand(load),
		newMigrateCommand(load),
	)
	return root
}

// loader reads configuration and builds the logger for a subcommand.
type loader func() (*config.Config, *slog.Logger, error)
