package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	litemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/oksasatya/users-service/migrations"
)

// MigrateUp applies every pending migration for the dialect. The migration
// runs on its own connection opened from dsn, closed before returning.
func MigrateUp(dialect Dialect, dsn string, logger *logrus.Logger) error {
	return runMigrations(dialect, dsn, logger, func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown reverts the given number of applied migrations.
func MigrateDown(dialect Dialect, dsn string, steps int, logger *logrus.Logger) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	return runMigrations(dialect, dsn, logger, func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func runMigrations(dialect Dialect, dsn string, logger *logrus.Logger, run func(*migrate.Migrate) error) error {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dialect, err)
	}

	var driver database.Driver
	switch dialect {
	case Postgres:
		driver, err = pgmigrate.WithInstance(db, &pgmigrate.Config{})
	case SQLite:
		driver, err = litemigrate.WithInstance(db, &litemigrate.Config{})
	default:
		err = fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	src, err := iofs.New(migrations.FS, migrationsDir(dialect))
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect.String(), driver)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrate instance: %w", err)
	}
	// closes db as well
	defer func() { _, _ = m.Close() }()

	logger.WithField("dialect", dialect).Info("running migrations...")
	err = run(m)
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		logger.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("migrations applied")
	}
	return nil
}

func migrationsDir(d Dialect) string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}
