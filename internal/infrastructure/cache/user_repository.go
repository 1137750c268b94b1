// Package cache decorates a UserRepository with a redis read-through cache.
package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/users-service/internal/domain/entity"
	"github.com/oksasatya/users-service/internal/domain/repository"
	"github.com/oksasatya/users-service/pkg/helpers"
)

const keyPrefix = "users:email:"

// record is the cached form of a user. It carries the hash so Login can be
// served from the cache.
type record struct {
	EmailAddress string `json:"emailAddress"`
	Name         string `json:"name"`
	Password     string `json:"password"`
}

// UserRepository serves lookups from redis and falls back to next on a miss.
// Redis failures are logged and never fail the call; the backing repository
// stays the source of truth.
type UserRepository struct {
	next   repository.UserRepository
	rdb    helpers.RedisClient
	ttl    time.Duration
	logger *logrus.Logger
}

func NewUserRepository(next repository.UserRepository, rdb helpers.RedisClient, ttl time.Duration, logger *logrus.Logger) *UserRepository {
	return &UserRepository{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	key := cacheKey(email)

	var rec record
	hit, err := helpers.RedisGetJSON(ctx, r.rdb, key, &rec)
	if err != nil {
		helpers.LogWarn(r.logger, "user cache read failed", err, logrus.Fields{"key": key})
	}
	if hit {
		return entity.UserFromStorage(rec.EmailAddress, rec.Name, rec.Password), nil
	}

	u, err := r.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	r.put(ctx, u)

	return u, nil
}

// Store writes through: the user is cached only after next accepted it.
func (r *UserRepository) Store(ctx context.Context, u *entity.User) error {
	if err := r.next.Store(ctx, u); err != nil {
		return err
	}
	r.put(ctx, u)

	return nil
}

func (r *UserRepository) put(ctx context.Context, u *entity.User) {
	key := cacheKey(u.EmailAddress())
	rec := record{EmailAddress: u.EmailAddress(), Name: u.Name(), Password: u.Password()}
	if err := helpers.RedisSetJSON(ctx, r.rdb, key, rec, r.ttl); err != nil {
		helpers.LogWarn(r.logger, "user cache write failed", err, logrus.Fields{"key": key})
	}
}

// Ping delegates to the backing repository when it supports it.
func (r *UserRepository) Ping(ctx context.Context) error {
	if p, ok := r.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Evict drops the cached entry for email.
func (r *UserRepository) Evict(ctx context.Context, email string) error {
	return helpers.RedisDel(ctx, r.rdb, cacheKey(email))
}

func cacheKey(email string) string {
	return keyPrefix + entity.NormalizeEmail(email)
}

var _ repository.UserRepository = (*UserRepository)(nil)
