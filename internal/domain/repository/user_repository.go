// Package repository declares the persistence ports of the user domain.
//
//go:generate mockgen -package mockrepository -source=user_repository.go -destination=mock/mockrepository.go
package repository

import (
	"context"

	"github.com/oksasatya/users-service/internal/domain/entity"
)

// UserRepository defines the storage operations the use cases rely on.
//
// Implementations return *apperror.Error values only:
// ErrUserDoesNotExist when a lookup matches nothing, ErrUserAlreadyExists when
// the email is taken, and a KindDatabase error for backend failures. They must
// be safe for concurrent use and must not hand out references to internal
// state.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Store(ctx context.Context, u *entity.User) error
}
