package pet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
	"github.com/fastygo/pets/repository/memory"
)

type recordingBus struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	err    error
}

func (b *recordingBus) Publish(_ context.Context, events []domain.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, events...)
	return nil
}

func (b *recordingBus) names() []domain.EventName {
	out := make([]domain.EventName, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

type failingPetRepo struct {
	repository.PetRepository
}

func (failingPetRepo) Save(context.Context, *domain.Pet) error   { return errors.New("db down") }
func (failingPetRepo) Create(context.Context, *domain.Pet) error { return errors.New("db down") }

// lockstepPetRepo holds every FindByID caller until all of them have looked,
// so concurrent creates all pass the existence check.
type lockstepPetRepo struct {
	repository.PetRepository
	looked *sync.WaitGroup
}

func (r lockstepPetRepo) FindByID(ctx context.Context, id string) (*domain.Pet, error) {
	pet, err := r.PetRepository.FindByID(ctx, id)
	r.looked.Done()
	r.looked.Wait()
	return pet, err
}

type fixture struct {
	uc     *UseCase
	pets   *memory.PetRepository
	owners *memory.PetUserRepository
	bus    *recordingBus
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	pets := memory.NewPetRepository()
	owners := memory.NewPetUserRepository()
	for _, p := range []domain.PetUserPrimitives{{ID: "owner-1", Username: "alice"}, {ID: "owner-2", Username: "bob"}} {
		u, err := domain.PetUserFromPrimitives(p)
		require.NoError(t, err)
		require.NoError(t, owners.Save(context.Background(), u))
	}
	bus := &recordingBus{}
	return fixture{uc: New(pets, owners, bus, nil), pets: pets, owners: owners, bus: bus}
}

func (f fixture) create(t *testing.T, id, owner string) domain.PetWithOwner {
	t.Helper()
	view, err := f.uc.Create(context.Background(), CreateInput{ID: id, Name: "Fluffy", Type: "cat", OwnerID: owner})
	require.NoError(t, err)
	return view
}

func TestCreatePublishesPetCreated(t *testing.T) {
	f := newFixture(t)
	view := f.create(t, "pet-1", "owner-1")

	require.Equal(t, domain.PetWithOwner{
		ID: "pet-1", Name: "Fluffy", OwnerID: "owner-1", OwnerUsername: "alice",
		Health: 50, Hunger: 50, Stamina: 50, Type: domain.PetTypeCat,
	}, view)
	require.Equal(t, []domain.EventName{domain.EventPetCreated}, f.bus.names())
}

func TestCreateRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, CreateInput{ID: "pet-1", Name: "Fluffy", Type: "cat", OwnerID: "ghost"})
	require.ErrorIs(t, err, domain.ErrPetUserNotFound)

	_, err = f.uc.Create(ctx, CreateInput{ID: "pet-1", Name: "Fluffy", Type: "dragon", OwnerID: "owner-1"})
	require.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))

	f.create(t, "pet-1", "owner-1")
	_, err = f.uc.Create(ctx, CreateInput{ID: "pet-1", Name: "Other", Type: "dog", OwnerID: "owner-2"})
	require.ErrorIs(t, err, domain.ErrPetAlreadyExists)

	require.Len(t, f.bus.events, 1)
}

func TestSaveFailureNeverPublishes(t *testing.T) {
	f := newFixture(t)
	uc := New(failingPetRepo{f.pets}, f.owners, f.bus, nil)

	_, err := uc.Create(context.Background(), CreateInput{ID: "pet-1", Name: "Fluffy", Type: "cat", OwnerID: "owner-1"})
	require.Error(t, err)
	require.Empty(t, f.bus.events)
}

func TestPublishFailureAfterSaveIsReturned(t *testing.T) {
	f := newFixture(t)
	f.bus.err = errors.New("broker down")

	_, err := f.uc.Create(context.Background(), CreateInput{ID: "pet-1", Name: "Fluffy", Type: "cat", OwnerID: "owner-1"})
	require.Error(t, err)

	// The pet stays persisted without a notification.
	_, err = f.pets.FindByID(context.Background(), "pet-1")
	require.NoError(t, err)
}

func TestLifecycleThroughUseCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "pet-1", "owner-1")

	view, err := f.uc.Feed(ctx, "pet-1", "owner-1")
	require.NoError(t, err)
	require.Equal(t, 40, view.Hunger)

	view, err = f.uc.Play(ctx, "pet-1", "owner-1")
	require.NoError(t, err)
	require.Equal(t, 50, view.Hunger)
	require.Equal(t, 40, view.Stamina)

	view, err = f.uc.Sleep(ctx, "pet-1", "owner-1")
	require.NoError(t, err)
	require.Equal(t, 70, view.Stamina)

	view, err = f.uc.Rename(ctx, "pet-1", "owner-1", "Rex")
	require.NoError(t, err)
	require.Equal(t, "Rex", view.Name)

	_, err = f.uc.Rename(ctx, "pet-1", "owner-1", "Rex")
	require.NoError(t, err)

	require.Equal(t, []domain.EventName{domain.EventPetCreated, domain.EventPetRenamed}, f.bus.names())

	stored, err := f.pets.FindByID(ctx, "pet-1")
	require.NoError(t, err)
	require.Equal(t, "Rex", stored.Name())
	require.Equal(t, 70, stored.Stamina())
}

func TestPlayGuardLeavesStorageUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pet, err := domain.PetFromPrimitives(domain.PetPrimitives{
		ID: "pet-1", Name: "Tired", OwnerID: "owner-1", Health: 50, Hunger: 20, Stamina: 0, Type: domain.PetTypeDog,
	})
	require.NoError(t, err)
	require.NoError(t, f.pets.Save(ctx, pet))

	_, err = f.uc.Play(ctx, "pet-1", "owner-1")
	require.ErrorIs(t, err, domain.ErrLowStamina)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeUnprocessable))

	stored, err := f.pets.FindByID(ctx, "pet-1")
	require.NoError(t, err)
	require.Equal(t, 0, stored.Stamina())
	require.Equal(t, 20, stored.Hunger())
}

func TestForeignPetIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "pet-1", "owner-1")

	_, err := f.uc.Get(ctx, "pet-1", "owner-2")
	require.ErrorIs(t, err, domain.ErrPetNotFound)
	_, err = f.uc.Feed(ctx, "pet-1", "owner-2")
	require.ErrorIs(t, err, domain.ErrPetNotFound)
	require.ErrorIs(t, f.uc.Delete(ctx, "pet-1", "owner-2"), domain.ErrPetNotFound)

	require.NoError(t, f.uc.Delete(ctx, "pet-1", "owner-1"))
	_, err = f.uc.Get(ctx, "pet-1", "owner-1")
	require.ErrorIs(t, err, domain.ErrPetNotFound)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "pet-1", "owner-1")
	f.create(t, "pet-2", "owner-2")
	f.create(t, "pet-3", "owner-1")

	mine, err := f.uc.ListMine(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "pet-3", mine[0].ID)
	require.Equal(t, "alice", mine[0].OwnerUsername)

	all, err := f.uc.ListAll(ctx, repository.PetFilter{OwnerID: "ignored"})
	require.NoError(t, err)
	require.Equal(t, []string{"pet-3", "pet-2", "pet-1"}, []string{all[0].ID, all[1].ID, all[2].ID})
	require.Equal(t, "bob", all[1].OwnerUsername)

	require.NoError(t, f.uc.AdminDelete(ctx, "pet-2"))
	require.ErrorIs(t, f.uc.AdminDelete(ctx, "pet-2"), domain.ErrPetNotFound)
}

func TestConcurrentCreateOfSameIDHasOneWinner(t *testing.T) {
	f := newFixture(t)
	looked := &sync.WaitGroup{}
	looked.Add(2)
	uc := New(lockstepPetRepo{PetRepository: f.pets, looked: looked}, f.owners, f.bus, nil)

	owners := []string{"owner-1", "owner-2"}
	errs := make([]error, len(owners))
	var wg sync.WaitGroup
	for i, owner := range owners {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			_, errs[i] = uc.Create(context.Background(), CreateInput{ID: "pet-x", Name: "Fluffy", Type: "cat", OwnerID: owner})
		}(i, owner)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "only one create may succeed")
			winner = i
			continue
		}
		require.ErrorIs(t, err, domain.ErrPetAlreadyExists)
	}
	require.NotEqual(t, -1, winner)
	require.Equal(t, []domain.EventName{domain.EventPetCreated}, f.bus.names())

	stored, err := f.pets.FindByID(context.Background(), "pet-x")
	require.NoError(t, err)
	require.Equal(t, owners[winner], stored.OwnerID())
}
