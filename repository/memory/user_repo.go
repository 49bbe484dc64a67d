// Package memory holds map-backed repositories used by tests and by the
// STORAGE_DRIVER=memory mode.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
)

// UserRepository is an in-memory repository.UserRepository.
type UserRepository struct {
	mu      sync.RWMutex
	records map[string]domain.UserRecord
}

func NewUserRepository() *UserRepository {
	return &UserRepository{records: make(map[string]domain.UserRecord)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.find(func(rec domain.UserRecord) bool { return rec.ID == id })
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(rec domain.UserRecord) bool { return rec.Email == email })
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.find(func(rec domain.UserRecord) bool { return rec.Username == username })
}

// Save enforces the same uniqueness the SQL schema does.
func (r *UserRepository) Save(_ context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	record := user.ToRecord()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.records {
		if id == record.ID {
			continue
		}
		if existing.Email == record.Email || existing.Username == record.Username {
			return domain.ErrUserAlreadyExists
		}
	}
	if existing, ok := r.records[record.ID]; ok {
		record.CreatedAt = existing.CreatedAt
	} else {
		record.CreatedAt = time.Now().UTC()
	}
	r.records[record.ID] = record
	return nil
}

func (r *UserRepository) find(match func(domain.UserRecord) bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if match(rec) {
			return domain.UserFromRecord(rec)
		}
	}
	return nil, domain.ErrUserNotFound
}
