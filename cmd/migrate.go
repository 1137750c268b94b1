package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/oksasatya/users-service/config"
	"github.com/oksasatya/users-service/internal/infrastructure/sqlite"
	"github.com/oksasatya/users-service/internal/infrastructure/sqlstore"
)

// migrationTarget resolves the dialect and dsn for the configured backend.
func migrationTarget(cfg *config.Config) (sqlstore.Dialect, string, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		return sqlstore.Postgres, cfg.Database.ConnectionString, nil
	case config.BackendSQLite:
		return sqlstore.SQLite, sqlite.DSN(cfg.Storage.SQLitePath, 0), nil
	default:
		return "", "", errors.New("the configured storage backend has no schema to migrate")
	}
}

func migrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manages the relational schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Migrates database to the latest version",
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, dsn, err := migrationTarget(a.cfg)
			if err != nil {
				return err
			}
			return sqlstore.MigrateUp(dialect, dsn, a.logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Reverts the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, dsn, err := migrationTarget(a.cfg)
			if err != nil {
				return err
			}
			return sqlstore.MigrateDown(dialect, dsn, steps, a.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")

	cmd.AddCommand(up, down)
	return cmd
}
