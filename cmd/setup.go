package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytsort/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Wrote %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.youtube.api_key for read-only listing\n")
	r.writePlain("2. Set client_id/client_secret (or client_secrets_path) and run `ytsort auth login`\n")
	return nil
}

// SetupDatabase initializes the job database and runs migrations.
//
// With --rollback the most recent migration is reverted instead.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	r.logger.Info("initializing database", "path", path)

	if !cmd.Bool("rollback") {
		db, err := shared.OpenDatabase(ctx, r.config.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		r.logger.Infof("setup complete for database: %v", path)
		return nil
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(ctx, db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	r.logger.Info("rolled back latest migration", "path", path)
	return nil
}
