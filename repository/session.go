package repository

import (
	"context"

	"github.com/fastygo/pets/domain"
)

// SessionRepository stores issued logins. Get returns domain.ErrSessionNotFound
// for unknown or expired sessions.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}
