package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/package-registry/internal/repository/sqlite"
)

func newMigrateCommand(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back or inspect the embedded schema migrations.`,
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, load, func(db *sqlite.DB, log *slog.Logger) error {
				for i := 0; i < steps; i++ {
					version, err := db.MigrateDown(cmd.Context())
					if err != nil {
						return fmt.Errorf("migration rollback failed: %w", err)
					}
					log.Info("rolled back migration", slog.Int64("version", version))
				}
				return nil
			})
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Run all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, load, func(db *sqlite.DB, log *slog.Logger) error {
					version, err := db.Migrate(cmd.Context())
					if err != nil {
						return fmt.Errorf("migration failed: %w", err)
					}
					log.Info("migrations completed", slog.Int64("version", version))
					return nil
				})
			},
		},
		down,
		&cobra.Command{
			Use:   "status",
			Short: "Show migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, load, func(db *sqlite.DB, _ *slog.Logger) error {
					states, err := db.MigrationStatus(cmd.Context())
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					for _, s := range states {
						mark := "pending"
						if s.Applied {
							mark = "applied"
						}
						fmt.Fprintf(out, "%05d  %-8s %s\n", s.Version, mark, s.Path)
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func withDB(cmd *cobra.Command, load loader, fn func(*sqlite.DB, *slog.Logger) error) error {
	cfg, log, err := load()
	if err != nil {
		return err
	}
	db, err := sqlite.Open(cmd.Context(), cfg.Database.Path, sqlite.Options{
		BusyTimeout:    cfg.Database.BusyTimeout,
		SkipMigrations: true,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db, log)
}
