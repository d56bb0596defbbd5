package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kakebo/internal/cli"
	"kakebo/internal/config"
	"kakebo/internal/storage"
	"kakebo/internal/storage/postgres"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema of the sqlite and postgres backends",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrations(func(cmd *cobra.Command, cfg *config.Config) error {
				if cfg.DataBackend == config.BackendPostgres {
					return postgres.RunMigrations(cfg.DatabaseURL)
				}
				return storage.RunMigrations(cfg.SQLiteDBPath)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the most recent migration",
			RunE: withMigrations(func(cmd *cobra.Command, cfg *config.Config) error {
				if cfg.DataBackend == config.BackendPostgres {
					return postgres.RollbackMigration(cfg.DatabaseURL)
				}
				return storage.RollbackMigration(cfg.SQLiteDBPath)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: withMigrations(func(cmd *cobra.Command, cfg *config.Config) error {
				var (
					version uint
					dirty   bool
					err     error
				)
				if cfg.DataBackend == config.BackendPostgres {
					version, dirty, err = postgres.MigrationVersion(cfg.DatabaseURL)
				} else {
					version, dirty, err = storage.MigrationVersion(cfg.SQLiteDBPath)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}

func withMigrations(fn func(*cobra.Command, *config.Config) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := cli.LoadAndValidateConfig()
		if err != nil {
			return err
		}
		logger := cli.SetupLogger(cfg, cmd.ErrOrStderr())

		if cfg.DataBackend == config.BackendMemory {
			return fmt.Errorf("the %s backend has no schema to migrate", cfg.DataBackend)
		}
		if err := fn(cmd, cfg); err != nil {
			return err
		}
		logger.Info("Migration command completed", "command", cmd.Name(), "backend", cfg.DataBackend)
		return nil
	}
}
