package repository

import (
	"context"

	"github.com/fastygo/pets/domain"
)

// PetFilter narrows List. An empty OwnerID lists every pet.
type PetFilter struct {
	OwnerID string
	Limit   int
	Offset  int
}

// PetRepository persists pets. List returns the newest pets first.
type PetRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Pet, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Pet, error)
	List(ctx context.Context, filter PetFilter) ([]*domain.Pet, error)
	// Create stores a new pet and fails with domain.ErrPetAlreadyExists when
	// the id is taken. Save upserts.
	Create(ctx context.Context, pet *domain.Pet) error
	Save(ctx context.Context, pet *domain.Pet) error
	Delete(ctx context.Context, id string) error
}

// PetUserRepository persists the pets context's projection of users.
type PetUserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.PetUser, error)
	Save(ctx context.Context, user *domain.PetUser) error
}
