package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/users-service/config"
	userapp "github.com/oksasatya/users-service/internal/application"
	"github.com/oksasatya/users-service/internal/domain/repository"
	"github.com/oksasatya/users-service/internal/infrastructure/cache"
	"github.com/oksasatya/users-service/internal/infrastructure/memory"
	"github.com/oksasatya/users-service/internal/infrastructure/postgres"
	"github.com/oksasatya/users-service/internal/infrastructure/sqlite"
	"github.com/oksasatya/users-service/internal/infrastructure/sqlstore"
	"github.com/oksasatya/users-service/internal/telemetry"
	"github.com/oksasatya/users-service/pkg/helpers"
)

// Closer releases whatever a builder opened. Never nil.
type Closer func() error

func noopCloser() error { return nil }

// BuildUserRepository opens the backend selected by storage.backend, runs
// migrations when configured and wraps the result in the redis cache when
// enabled.
func BuildUserRepository(ctx context.Context, c *config.Config, l *logrus.Logger) (repository.UserRepository, Closer, error) {
	var (
		repo   repository.UserRepository
		closer Closer = noopCloser
	)

	switch c.Storage.Backend {
	case config.BackendMemory:
		l.Warn("using in-memory user storage; data is lost on restart")
		repo = memory.NewUserRepository()

	case config.BackendPostgres:
		if c.Database.MigrateOnStart {
			if err := sqlstore.MigrateUp(sqlstore.Postgres, c.Database.ConnectionString, l); err != nil {
				return nil, nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		db, err := postgres.Open(ctx, postgres.Options{
			DSN:             c.Database.ConnectionString,
			MaxConns:        c.Database.MaxConns,
			MinConns:        c.Database.MinConns,
			MaxConnLifetime: c.Database.MaxConnLifetime,
			MaxConnIdleTime: c.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		repo = sqlstore.NewUserRepository(db.SQL, sqlstore.Postgres)
		closer = db.Close

	case config.BackendSQLite:
		dsn := sqlite.DSN(c.Storage.SQLitePath, 0)
		if c.Database.MigrateOnStart {
			if err := sqlstore.MigrateUp(sqlstore.SQLite, dsn, l); err != nil {
				return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, dsn, 1)
		if err != nil {
			return nil, nil, err
		}
		repo = sqlstore.NewUserRepository(db, sqlstore.SQLite)
		closer = db.Close

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Cache {
		rdb, err := connectRedis(ctx, c)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		SetRedis(rdb)
		repo = cache.NewUserRepository(repo, rdb, c.Storage.CacheTTL, l)
		inner := closer
		closer = func() error { return errors.Join(rdb.Close(), inner()) }
	}

	helpers.LogInfo(l, "user storage ready", logrus.Fields{
		"backend": c.Storage.Backend,
		"cache":   c.Storage.Cache,
	})
	return repo, closer, nil
}

func connectRedis(ctx context.Context, c *config.Config) (*redis.Client, error) {
	rdb := helpers.NewRedisClient(c.Redis.Addr, c.Redis.Password, c.Redis.DB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("could not reach redis at %s: %w", c.Redis.Addr, err)
	}
	return rdb, nil
}

// BuildUserService assembles the application service from the container's
// telemetry and publisher.
func BuildUserService(repo repository.UserRepository, c *config.Config, l *logrus.Logger) *userapp.Service {
	opts := []userapp.Option{userapp.WithPublishTimeout(c.Messaging.PublishTimeout)}
	if t := GetTelemetry(); t != nil {
		opts = append(opts,
			userapp.WithMeterProvider(t.MeterProvider()),
			userapp.WithTracerProvider(t.TracerProvider()),
		)
	}
	if p := GetRabbitPub(); p != nil {
		opts = append(opts, userapp.WithPublisher(p))
	}
	return userapp.NewService(repo, l, opts...)
}

// BuildTelemetry returns nil when both metrics and traces are disabled.
func BuildTelemetry(c *config.Config) (*telemetry.Telemetry, error) {
	if !c.Telemetry.MetricsEnabled && !c.Telemetry.TracesEnabled {
		return nil, nil
	}
	opts := telemetry.Options{ServiceName: c.App.Name}
	if c.Telemetry.TracesEnabled {
		opts.SpanWriter = os.Stdout
	}
	return telemetry.New(opts)
}
