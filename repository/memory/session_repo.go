package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
)

// SessionRepository is an in-memory repository.SessionRepository. Expired
// sessions are dropped lazily on read.
type SessionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]domain.Session
	now      func() time.Time
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{ttl: ttl, sessions: make(map[string]domain.Session), now: time.Now}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Get(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.IsExpired(r.now()) {
		delete(r.sessions, id)
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *SessionRepository) Save(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.now()
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

func (r *SessionRepository) Extend(_ context.Context, id string, ttlSeconds int) error {
	duration := time.Duration(ttlSeconds) * time.Second
	if duration <= 0 {
		duration = r.ttl
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok || session.IsExpired(r.now()) {
		return domain.ErrSessionNotFound
	}
	session.ExpiresAt = r.now().Add(duration)
	r.sessions[id] = session
	return nil
}
