package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
)

const sessionKeyPrefix = "pets:session:"

type sessionRepository struct {
	client *redislib.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionRepository creates a Redis-backed session repository. Each
// session is a JSON string that expires with the session itself.
func NewSessionRepository(client *redislib.Client, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sessionRepository{client: client, ttl: ttl, now: time.Now}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	payload, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	if session.IsExpired(r.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}

	now := r.now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if !session.ExpiresAt.After(session.CreatedAt) {
		session.ExpiresAt = session.CreatedAt.Add(r.ttl)
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ttl := session.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return domain.NewError(domain.ErrCodeInvalid, "session already expired")
	}
	return r.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err()
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, sessionKey(id)).Err()
}

func (r *sessionRepository) Extend(ctx context.Context, id string, ttlSeconds int) error {
	duration := time.Duration(ttlSeconds) * time.Second
	if duration <= 0 {
		duration = r.ttl
	}
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	session.ExpiresAt = r.now().Add(duration)
	return r.Save(ctx, session)
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}
