package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/entity"
	"github.com/oksasatya/users-service/internal/domain/repository"
)

const usersTable = "users"

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type userRow struct {
	EmailAddress string `db:"email_address"`
	Name         string `db:"name"`
	Password     string `db:"password"`
}

// UserRepository stores users in a relational database. Connections come from
// the *sql.DB pool and are released when each call returns.
type UserRepository struct {
	db      *sql.DB
	builder *goqu.Database
	dialect Dialect
}

func NewUserRepository(db *sql.DB, dialect Dialect) *UserRepository {
	return &UserRepository{
		db:      db,
		builder: builder(db, dialect),
		dialect: dialect,
	}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var row userRow
	found, err := r.builder.From(usersTable).
		Prepared(true).
		Where(goqu.C("email_address").Eq(entity.NormalizeEmail(email))).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, apperror.Database(err, "could not fetch user from %s", r.dialect)
	}
	if !found {
		return nil, apperror.ErrUserDoesNotExist
	}

	return entity.UserFromStorage(row.EmailAddress, row.Name, row.Password), nil
}

func (r *UserRepository) Store(ctx context.Context, u *entity.User) error {
	_, err := r.builder.Insert(usersTable).
		Prepared(true).
		Rows(userRow{
			EmailAddress: entity.NormalizeEmail(u.EmailAddress()),
			Name:         u.Name(),
			Password:     u.Password(),
		}).
		Executor().ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrUserAlreadyExists
		}
		return apperror.Database(err, "could not store user into %s", r.dialect)
	}

	return nil
}

// Ping checks that a connection can be acquired.
func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return apperror.Database(err, "ping %s", r.dialect)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}

	return false
}

var _ repository.UserRepository = (*UserRepository)(nil)
