package pet

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
	"github.com/fastygo/pets/usecase"
)

// CreateInput is the payload of a pet creation. OwnerID comes from the token.
type CreateInput struct {
	ID      string
	Name    string
	Type    string
	OwnerID string
}

type UseCase struct {
	pets   repository.PetRepository
	owners repository.PetUserRepository
	bus    usecase.EventBus
	logger *zap.Logger
}

func New(pets repository.PetRepository, owners repository.PetUserRepository, bus usecase.EventBus, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		pets:   pets,
		owners: owners,
		bus:    bus,
		logger: logger,
	}
}

// Create requires the owner to be known to the pets context.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (domain.PetWithOwner, error) {
	owner, err := uc.owners.FindByID(ctx, in.OwnerID)
	if err != nil {
		return domain.PetWithOwner{}, err
	}

	petType, err := domain.ParsePetType(in.Type)
	if err != nil {
		return domain.PetWithOwner{}, err
	}

	switch _, err := uc.pets.FindByID(ctx, in.ID); {
	case err == nil:
		return domain.PetWithOwner{}, domain.ErrPetAlreadyExists
	case !errors.Is(err, domain.ErrPetNotFound):
		return domain.PetWithOwner{}, err
	}

	pet, err := domain.CreatePet(in.ID, in.Name, owner.ID(), petType)
	if err != nil {
		return domain.PetWithOwner{}, err
	}
	// The lookup above is a fast path; Create is what rejects a concurrent duplicate.
	if err := uc.pets.Create(ctx, pet); err != nil {
		return domain.PetWithOwner{}, err
	}
	if err := uc.publish(ctx, pet); err != nil {
		return domain.PetWithOwner{}, err
	}

	uc.logger.Info("pet created", zap.String("pet_id", pet.ID()), zap.String("owner_id", owner.ID()))
	return domain.NewPetWithOwner(pet.ToPrimitives(), owner.Username()), nil
}

func (uc *UseCase) Get(ctx context.Context, id, ownerID string) (domain.PetWithOwner, error) {
	pet, err := uc.pets.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return domain.PetWithOwner{}, err
	}
	return uc.withOwner(ctx, pet)
}

// ListMine returns the owner's pets, newest first.
func (uc *UseCase) ListMine(ctx context.Context, ownerID string) ([]domain.PetWithOwner, error) {
	pets, err := uc.pets.List(ctx, repository.PetFilter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	return uc.withOwners(ctx, pets)
}

// ListAll returns every pet, newest first.
func (uc *UseCase) ListAll(ctx context.Context, filter repository.PetFilter) ([]domain.PetWithOwner, error) {
	filter.OwnerID = ""
	pets, err := uc.pets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return uc.withOwners(ctx, pets)
}

func (uc *UseCase) Rename(ctx context.Context, id, ownerID, name string) (domain.PetWithOwner, error) {
	return uc.mutate(ctx, id, ownerID, func(p *domain.Pet) error { return p.Rename(name) })
}

func (uc *UseCase) Feed(ctx context.Context, id, ownerID string) (domain.PetWithOwner, error) {
	return uc.mutate(ctx, id, ownerID, func(p *domain.Pet) error {
		p.Feed()
		return nil
	})
}

func (uc *UseCase) Play(ctx context.Context, id, ownerID string) (domain.PetWithOwner, error) {
	return uc.mutate(ctx, id, ownerID, (*domain.Pet).Play)
}

func (uc *UseCase) Sleep(ctx context.Context, id, ownerID string) (domain.PetWithOwner, error) {
	return uc.mutate(ctx, id, ownerID, func(p *domain.Pet) error {
		p.Sleep()
		return nil
	})
}

// Delete removes one of the owner's pets. A foreign pet is reported as not found.
func (uc *UseCase) Delete(ctx context.Context, id, ownerID string) error {
	if _, err := uc.pets.FindByIDAndOwner(ctx, id, ownerID); err != nil {
		return err
	}
	if err := uc.pets.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("pet deleted", zap.String("pet_id", id), zap.String("owner_id", ownerID))
	return nil
}

// AdminDelete removes any pet regardless of its owner.
func (uc *UseCase) AdminDelete(ctx context.Context, id string) error {
	if err := uc.pets.Delete(ctx, id); err != nil {
		return err
	}
	uc.logger.Info("pet deleted by admin", zap.String("pet_id", id))
	return nil
}

// mutate loads the owner's pet, applies fn, saves and publishes what fn recorded.
// A failing fn leaves storage untouched.
func (uc *UseCase) mutate(ctx context.Context, id, ownerID string, fn func(*domain.Pet) error) (domain.PetWithOwner, error) {
	pet, err := uc.pets.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return domain.PetWithOwner{}, err
	}
	if err := fn(pet); err != nil {
		return domain.PetWithOwner{}, err
	}
	if err := uc.persist(ctx, pet); err != nil {
		return domain.PetWithOwner{}, err
	}
	return uc.withOwner(ctx, pet)
}

// persist saves before publishing; a failed save never publishes.
func (uc *UseCase) persist(ctx context.Context, pet *domain.Pet) error {
	if err := uc.pets.Save(ctx, pet); err != nil {
		return err
	}
	return uc.publish(ctx, pet)
}

func (uc *UseCase) publish(ctx context.Context, pet *domain.Pet) error {
	if err := uc.bus.Publish(ctx, pet.PullDomainEvents()); err != nil {
		uc.logger.Error("pet saved but events not published", zap.String("pet_id", pet.ID()), zap.Error(err))
		return err
	}
	return nil
}

func (uc *UseCase) withOwner(ctx context.Context, pet *domain.Pet) (domain.PetWithOwner, error) {
	owner, err := uc.owners.FindByID(ctx, pet.OwnerID())
	if err != nil {
		return domain.PetWithOwner{}, err
	}
	return domain.NewPetWithOwner(pet.ToPrimitives(), owner.Username()), nil
}

func (uc *UseCase) withOwners(ctx context.Context, pets []*domain.Pet) ([]domain.PetWithOwner, error) {
	usernames := make(map[string]string)
	out := make([]domain.PetWithOwner, 0, len(pets))
	for _, pet := range pets {
		username, ok := usernames[pet.OwnerID()]
		if !ok {
			owner, err := uc.owners.FindByID(ctx, pet.OwnerID())
			switch {
			case err == nil:
				username = owner.Username()
			case errors.Is(err, domain.ErrPetUserNotFound):
				uc.logger.Warn("pet owner missing", zap.String("pet_id", pet.ID()), zap.String("owner_id", pet.OwnerID()))
			default:
				return nil, err
			}
			usernames[pet.OwnerID()] = username
		}
		out = append(out, domain.NewPetWithOwner(pet.ToPrimitives(), username))
	}
	return out, nil
}
