package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
)

type storedPet struct {
	seq  uint64
	data domain.PetPrimitives
}

// PetRepository is an in-memory repository.PetRepository. Pets are stored
// as primitives so callers never share an aggregate instance.
type PetRepository struct {
	mu   sync.RWMutex
	seq  uint64
	pets map[string]storedPet
}

func NewPetRepository() *PetRepository {
	return &PetRepository{pets: make(map[string]storedPet)}
}

var _ repository.PetRepository = (*PetRepository)(nil)

func (r *PetRepository) FindByID(_ context.Context, id string) (*domain.Pet, error) {
	r.mu.RLock()
	stored, ok := r.pets[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPetNotFound
	}
	return domain.PetFromPrimitives(stored.data)
}

func (r *PetRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Pet, error) {
	pet, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pet.OwnedBy(ownerID) {
		return nil, domain.ErrPetNotFound
	}
	return pet, nil
}

func (r *PetRepository) List(_ context.Context, filter repository.PetFilter) ([]*domain.Pet, error) {
	r.mu.RLock()
	matched := make([]storedPet, 0, len(r.pets))
	for _, stored := range r.pets {
		if filter.OwnerID == "" || stored.data.OwnerID == filter.OwnerID {
			matched = append(matched, stored)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	pets := make([]*domain.Pet, 0, len(matched))
	for _, stored := range matched {
		pet, err := domain.PetFromPrimitives(stored.data)
		if err != nil {
			return nil, err
		}
		pets = append(pets, pet)
	}
	return pets, nil
}

func (r *PetRepository) Create(_ context.Context, pet *domain.Pet) error {
	if pet == nil {
		return domain.ErrInvalidPayload
	}
	data := pet.ToPrimitives()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pets[data.ID]; ok {
		return domain.ErrPetAlreadyExists
	}
	r.seq++
	r.pets[data.ID] = storedPet{seq: r.seq, data: data}
	return nil
}

func (r *PetRepository) Save(_ context.Context, pet *domain.Pet) error {
	if pet == nil {
		return domain.ErrInvalidPayload
	}
	data := pet.ToPrimitives()

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.pets[data.ID]
	if !ok {
		r.seq++
		stored.seq = r.seq
	}
	stored.data = data
	r.pets[data.ID] = stored
	return nil
}

func (r *PetRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pets[id]; !ok {
		return domain.ErrPetNotFound
	}
	delete(r.pets, id)
	return nil
}

// PetUserRepository is an in-memory repository.PetUserRepository.
type PetUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.PetUserPrimitives
}

func NewPetUserRepository() *PetUserRepository {
	return &PetUserRepository{users: make(map[string]domain.PetUserPrimitives)}
}

var _ repository.PetUserRepository = (*PetUserRepository)(nil)

func (r *PetUserRepository) FindByID(_ context.Context, id string) (*domain.PetUser, error) {
	r.mu.RLock()
	p, ok := r.users[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPetUserNotFound
	}
	return domain.PetUserFromPrimitives(p)
}

func (r *PetUserRepository) Save(_ context.Context, user *domain.PetUser) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	r.users[user.ID()] = user.ToPrimitives()
	r.mu.Unlock()
	return nil
}
