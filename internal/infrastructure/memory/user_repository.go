package memory

import (
	"context"
	"sync"

	"github.com/oksasatya/users-service/internal/domain/apperror"
	"github.com/oksasatya/users-service/internal/domain/entity"
	"github.com/oksasatya/users-service/internal/domain/repository"
)

// UserRepository keeps users in process memory. Meant for tests and demos.
// Every read and write goes through mu; callers only ever see clones.
type UserRepository struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*entity.User)}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.Database(err, "find user")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[entity.NormalizeEmail(email)]
	if !ok {
		return nil, apperror.ErrUserDoesNotExist
	}
	return u.Clone(), nil
}

// Store inserts u unless its email is already present. The check and the
// insert happen under the same lock.
func (r *UserRepository) Store(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return apperror.Database(err, "store user")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := entity.NormalizeEmail(u.EmailAddress())
	if _, exists := r.users[key]; exists {
		return apperror.ErrUserAlreadyExists
	}
	r.users[key] = u.Clone()
	return nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

var _ repository.UserRepository = (*UserRepository)(nil)
