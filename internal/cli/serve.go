package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/package-registry/internal/server"
)

func newServeCommand(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Open the database, apply pending migrations and serve the API until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			log.Info("starting registry",
				slog.Int("port", cfg.Server.Port),
				slog.String("database", cfg.Database.Path),
				slog.Bool("sessions", cfg.SessionsEnabled()),
			)

			srv, err := server.New(cfg, log)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return srv.Start()
		},
	}
}
