package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/database"
	"github.com/nerrad567/gatekeeper-core/migrations"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openForMigrate(opts)
				if err != nil {
					return err
				}
				defer db.Close()

				if err := db.Migrate(cmd.Context(), migrations.FS); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openForMigrate(opts)
				if err != nil {
					return err
				}
				defer db.Close()

				if err := db.MigrateDown(cmd.Context(), migrations.FS); err != nil {
					return fmt.Errorf("rolling back migration: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "rolled back one migration")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openForMigrate(opts)
				if err != nil {
					return err
				}
				defer db.Close()

				applied, pending, err := db.GetMigrationStatus(cmd.Context(), migrations.FS)
				if err != nil {
					return fmt.Errorf("reading migration status: %w", err)
				}
				out := cmd.OutOrStdout()
				for _, m := range applied {
					_, _ = fmt.Fprintf(out, "applied  %s  %s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
				}
				for _, m := range pending {
					_, _ = fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
				}
				return nil
			},
		},
	)
	return cmd
}

func openForMigrate(opts *rootOptions) (*database.DB, error) {
	cfg, _, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}
