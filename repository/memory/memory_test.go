package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
)

func newUser(t *testing.T, id, username, email string) *domain.User {
	t.Helper()
	user, err := domain.CreateUser(domain.CreateUserParams{
		ID: id, Username: username, Email: email, PasswordHash: "hash",
	})
	require.NoError(t, err)
	return user
}

func TestUserRepositoryUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	first := newUser(t, "11111111-1111-1111-1111-111111111111", "alice", "alice@example.com")
	require.NoError(t, repo.Save(ctx, first))

	dupEmail := newUser(t, "22222222-2222-2222-2222-222222222222", "bob", "Alice@example.com")
	require.ErrorIs(t, repo.Save(ctx, dupEmail), domain.ErrUserAlreadyExists)

	dupName := newUser(t, "33333333-3333-3333-3333-333333333333", "alice", "other@example.com")
	require.ErrorIs(t, repo.Save(ctx, dupName), domain.ErrUserAlreadyExists)

	// Saving the same user again is an update.
	require.NoError(t, repo.Save(ctx, first))

	found, err := repo.FindByEmail(ctx, " ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, first.ID(), found.ID())
	require.Empty(t, found.PullDomainEvents())

	_, err = repo.FindByUsername(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestPetRepositoryListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewPetRepository()

	for _, p := range []struct{ id, owner string }{
		{"p1", "o1"}, {"p2", "o2"}, {"p3", "o1"},
	} {
		pet, err := domain.CreatePet(p.id, "Pet "+p.id, p.owner, domain.PetTypeCat)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, pet))
	}

	all, err := repo.List(ctx, repository.PetFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p2", "p1"}, petIDs(all))

	mine, err := repo.List(ctx, repository.PetFilter{OwnerID: "o1"})
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p1"}, petIDs(mine))

	page, err := repo.List(ctx, repository.PetFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"p2"}, petIDs(page))

	// Updates keep the original position.
	p1, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	p1.Feed()
	require.NoError(t, repo.Save(ctx, p1))
	all, err = repo.List(ctx, repository.PetFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p2", "p1"}, petIDs(all))
	require.Equal(t, 40, all[2].Hunger())
}

func TestPetRepositoryOwnershipAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewPetRepository()
	pet, err := domain.CreatePet("p1", "Fluffy", "o1", domain.PetTypeDog)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, pet))

	_, err = repo.FindByIDAndOwner(ctx, "p1", "o2")
	require.ErrorIs(t, err, domain.ErrPetNotFound)

	found, err := repo.FindByIDAndOwner(ctx, "p1", "o1")
	require.NoError(t, err)
	require.Equal(t, "Fluffy", found.Name())

	require.NoError(t, repo.Delete(ctx, "p1"))
	require.ErrorIs(t, repo.Delete(ctx, "p1"), domain.ErrPetNotFound)
}

func TestSessionRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, &domain.Session{ID: "s1", UserID: "u1"}))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Minute), got.ExpiresAt)

	now = now.Add(30 * time.Second)
	require.NoError(t, repo.Extend(ctx, "s1", 120))

	now = now.Add(90 * time.Second)
	_, err = repo.Get(ctx, "s1")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = repo.Get(ctx, "s1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func petIDs(pets []*domain.Pet) []string {
	ids := make([]string, 0, len(pets))
	for _, p := range pets {
		ids = append(ids, p.ID())
	}
	return ids
}

func TestPetRepositoryCreateRejectsTakenID(t *testing.T) {
	ctx := context.Background()
	repo := NewPetRepository()

	first, err := domain.CreatePet("p1", "Rex", "o1", domain.PetTypeDog)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := domain.CreatePet("p1", "Tom", "o2", domain.PetTypeCat)
	require.NoError(t, err)
	require.ErrorIs(t, repo.Create(ctx, second), domain.ErrPetAlreadyExists)

	stored, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "o1", stored.OwnerID())
	require.Equal(t, "Rex", stored.Name())
}
