package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/entity"
	"github.com/oksasatya/users-service/internal/infrastructure/sqlite"
	"github.com/oksasatya/users-service/internal/infrastructure/sqlstore"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupSQLite(t *testing.T) (*sqlstore.UserRepository, *sql.DB, string) {
	t.Helper()

	dsn := sqlite.DSN(filepath.Join(t.TempDir(), "users.db"), 0)
	require.NoError(t, sqlstore.MigrateUp(sqlstore.SQLite, dsn, quietLogger()))

	db, err := sqlite.Open(context.Background(), dsn, 1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return sqlstore.NewUserRepository(db, sqlstore.SQLite), db, dsn
}

func TestSQLiteStoreAndFind(t *testing.T) {
	repo, _, _ := setupSQLite(t)
	ctx := context.Background()

	u, err := entity.NewUser("test@test.com", "James", "James!23")
	require.NoError(t, err)
	require.NoError(t, repo.Store(ctx, u))

	got, err := repo.FindByEmail(ctx, "TEST@test.com")
	require.NoError(t, err)
	require.Equal(t, "test@test.com", got.EmailAddress())
	require.Equal(t, "James", got.Name())
	require.Equal(t, u.Password(), got.Password())
	require.Equal(t, entity.TierStandard, got.Tier())
	require.NoError(t, got.VerifyPassword("James!23"))
}

func TestSQLiteFindUnknown(t *testing.T) {
	repo, _, _ := setupSQLite(t)

	_, err := repo.FindByEmail(context.Background(), "nobody@test.com")
	require.ErrorIs(t, err, apperror.ErrUserDoesNotExist)
}

func TestSQLiteStoreDuplicate(t *testing.T) {
	repo, _, _ := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, entity.UserFromStorage("a@b.com", "James", "h1")))
	err := repo.Store(ctx, entity.UserFromStorage("a@b.com", "John", "h2"))
	require.ErrorIs(t, err, apperror.ErrUserAlreadyExists)

	got, err := repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, "James", got.Name())
}

func TestSQLiteDriverErrorsAreDatabaseErrors(t *testing.T) {
	repo, db, _ := setupSQLite(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, "DROP TABLE users")
	require.NoError(t, err)

	_, err = repo.FindByEmail(ctx, "a@b.com")
	require.ErrorIs(t, err, apperror.ErrDatabase)
	require.NotErrorIs(t, err, apperror.ErrUserDoesNotExist)

	err = repo.Store(ctx, entity.UserFromStorage("a@b.com", "James", "h1"))
	require.ErrorIs(t, err, apperror.ErrDatabase)
}

func TestSQLiteCanceledContext(t *testing.T) {
	repo, _, _ := setupSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindByEmail(ctx, "a@b.com")
	require.ErrorIs(t, err, apperror.ErrDatabase)
}

func TestSQLiteConcurrentStores(t *testing.T) {
	const n = 32
	repo, _, _ := setupSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Store(ctx, entity.UserFromStorage(fmt.Sprintf("user%d@test.com", i), "User", "h"))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < n; i++ {
		_, err := repo.FindByEmail(ctx, fmt.Sprintf("user%d@test.com", i))
		require.NoError(t, err)
	}
}

func TestMigrateIsIdempotentAndReversible(t *testing.T) {
	_, db, dsn := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, sqlstore.MigrateUp(sqlstore.SQLite, dsn, quietLogger()))

	require.NoError(t, sqlstore.MigrateDown(sqlstore.SQLite, dsn, 1, quietLogger()))
	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'").Scan(&count))
	require.Zero(t, count)

	require.Error(t, sqlstore.MigrateDown(sqlstore.SQLite, dsn, 0, quietLogger()))
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]sqlstore.Dialect{
		"postgres":   sqlstore.Postgres,
		"postgresql": sqlstore.Postgres,
		"sqlite":     sqlstore.SQLite,
		"sqlite3":    sqlstore.SQLite,
	} {
		got, err := sqlstore.ParseDialect(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := sqlstore.ParseDialect("mysql")
	require.Error(t, err)
}
