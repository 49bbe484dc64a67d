package repository

import (
	"context"

	"github.com/fastygo/pets/domain"
)

// UserRepository persists the auth context's users. Finders return
// domain.ErrUserNotFound when nothing matches.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}
