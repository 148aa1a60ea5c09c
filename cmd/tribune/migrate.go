package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nasermirzaei89/tribune"
	"github.com/nasermirzaei89/tribune/db/sqlstore"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigration(cmd, sqlstore.MigrateUp)
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert all migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigration(cmd, sqlstore.MigrateDown)
			},
		},
	)

	return migrateCmd
}

func runMigration(cmd *cobra.Command, migration func(ctx context.Context, db *sqlstore.DB) error) error {
	ctx := cmd.Context()

	cfg, err := tribune.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sqlstore.NewDB(ctx, cfg.DBDialect, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	defer func() {
		err := db.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close database", "error", err)
		}
	}()

	return migration(ctx, db)
}
