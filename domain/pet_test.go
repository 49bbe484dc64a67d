package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func petWithStats(t *testing.T, hunger, stamina int) *Pet {
	t.Helper()
	pet, err := PetFromPrimitives(PetPrimitives{
		ID:      "pet-1",
		Name:    "Fluffy",
		OwnerID: "owner-1",
		Health:  50,
		Hunger:  hunger,
		Stamina: stamina,
		Type:    PetTypeCat,
	})
	require.NoError(t, err)
	return pet
}

func eventNames(events []DomainEvent) []EventName {
	names := make([]EventName, 0, len(events))
	for _, e := range events {
		names = append(names, e.EventName())
	}
	return names
}

func TestCreatePet(t *testing.T) {
	pet, err := CreatePet("pet-1", "Fluffy", "owner-1", PetTypeDog)
	require.NoError(t, err)
	require.Equal(t, 50, pet.Health())
	require.Equal(t, 50, pet.Hunger())
	require.Equal(t, 50, pet.Stamina())
	require.Equal(t, PetTypeDog, pet.Type())
	require.True(t, pet.OwnedBy("owner-1"))
	require.False(t, pet.OwnedBy("someone-else"))

	events := pet.PullDomainEvents()
	require.Len(t, events, 1)
	require.Equal(t, EventPetCreated, events[0].EventName())
	require.Equal(t, "pet-1", events[0].AggregateID())
	require.Equal(t, pet.ToPrimitives(), events[0].Body().(PetCreated).PetPrimitives)
}

func TestCreatePetRejectsInvalidInput(t *testing.T) {
	_, err := CreatePet("", "Fluffy", "owner-1", PetTypeCat)
	require.Error(t, err)
	_, err = CreatePet("pet-1", " ", "owner-1", PetTypeCat)
	require.Error(t, err)
	_, err = CreatePet("pet-1", "Fluffy", "", PetTypeCat)
	require.Error(t, err)
	_, err = CreatePet("pet-1", "Fluffy", "owner-1", PetType("DRAGON"))
	require.Error(t, err)
}

func TestPullDomainEventsDrainsOnce(t *testing.T) {
	pet, err := CreatePet("pet-1", "Fluffy", "owner-1", PetTypeCat)
	require.NoError(t, err)

	require.Len(t, pet.PullDomainEvents(), 1)
	require.Empty(t, pet.PullDomainEvents())
}

func TestRename(t *testing.T) {
	pet := petWithStats(t, 50, 50)

	require.NoError(t, pet.Rename("Fluffy"))
	require.Empty(t, pet.PullDomainEvents())

	require.NoError(t, pet.Rename("Rex"))
	events := pet.PullDomainEvents()
	require.Len(t, events, 1)
	require.Equal(t, EventPetRenamed, events[0].EventName())
	require.Equal(t, "Rex", events[0].Body().(PetRenamed).Name)
	require.Equal(t, "Rex", pet.Name())
}

func TestRenameRejectsInvalidName(t *testing.T) {
	pet := petWithStats(t, 50, 50)

	require.Error(t, pet.Rename(""))
	require.Error(t, pet.Rename("this name is definitely longer than thirty"))
	require.Equal(t, "Fluffy", pet.Name())
	require.Empty(t, pet.PullDomainEvents())
}

func TestPlayGuards(t *testing.T) {
	t.Run("depleted stamina", func(t *testing.T) {
		pet := petWithStats(t, 50, 0)
		err := pet.Play()
		require.ErrorIs(t, err, ErrLowStamina)
		require.Equal(t, 0, pet.Stamina())
		require.Equal(t, 50, pet.Hunger())
	})
	t.Run("maxed hunger", func(t *testing.T) {
		pet := petWithStats(t, 100, 50)
		err := pet.Play()
		require.ErrorIs(t, err, ErrTooHungry)
		require.Equal(t, 50, pet.Stamina())
		require.Equal(t, 100, pet.Hunger())
	})
	t.Run("stamina checked first", func(t *testing.T) {
		pet := petWithStats(t, 100, 0)
		require.ErrorIs(t, pet.Play(), ErrLowStamina)
	})
}

func TestPlayAtBoundarySucceedsOnce(t *testing.T) {
	pet := petWithStats(t, 95, 10)

	require.NoError(t, pet.Play())
	require.Equal(t, 0, pet.Stamina())
	require.Equal(t, 100, pet.Hunger())

	require.ErrorIs(t, pet.Play(), ErrLowStamina)
	require.Equal(t, 0, pet.Stamina())
	require.Equal(t, 100, pet.Hunger())
}

func TestSleepAndFeedClamp(t *testing.T) {
	pet := petWithStats(t, 5, 80)
	pet.Feed()
	pet.Sleep()
	require.Equal(t, 0, pet.Hunger())
	require.Equal(t, 100, pet.Stamina())
	require.Empty(t, pet.PullDomainEvents())
}

func TestPetLifecycleScenario(t *testing.T) {
	pet, err := CreatePet("pet-1", "Fluffy", "owner-1", PetTypeRabbit)
	require.NoError(t, err)

	pet.Feed()
	require.Equal(t, 40, pet.Hunger())

	require.NoError(t, pet.Play())
	require.Equal(t, 50, pet.Hunger())
	require.Equal(t, 40, pet.Stamina())

	pet.Sleep()
	require.Equal(t, 70, pet.Stamina())

	require.NoError(t, pet.Rename("Rex"))

	events := pet.PullDomainEvents()
	require.Equal(t, []EventName{EventPetCreated, EventPetRenamed}, eventNames(events))
	require.Equal(t, 50, pet.Health())
}
