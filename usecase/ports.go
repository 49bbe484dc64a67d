package usecase

import (
	"context"

	"github.com/fastygo/pets/domain"
)

// EventBus publishes drained domain events in order. An empty slice is a no-op.
type EventBus interface {
	Publish(ctx context.Context, events []domain.DomainEvent) error
}

// DomainEventListener consumes wire envelopes delivered by the broker.
// Implementations ignore a nil envelope and event names they do not handle.
type DomainEventListener interface {
	OnEvent(ctx context.Context, envelope *domain.WireEnvelope) error
}

// ListenerFunc adapts a function to DomainEventListener.
type ListenerFunc func(ctx context.Context, envelope *domain.WireEnvelope) error

func (f ListenerFunc) OnEvent(ctx context.Context, envelope *domain.WireEnvelope) error {
	return f(ctx, envelope)
}

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(plain, hashed string) bool
}

// TokenIssuer signs access tokens for a session.
type TokenIssuer interface {
	Issue(session *domain.Session) (string, error)
}
