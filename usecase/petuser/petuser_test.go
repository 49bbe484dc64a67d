package petuser

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository/memory"
)

type recordingBus struct {
	events []domain.DomainEvent
}

func (b *recordingBus) Publish(_ context.Context, events []domain.DomainEvent) error {
	b.events = append(b.events, events...)
	return nil
}

func userCreatedEnvelope(t *testing.T, id, username string) *domain.WireEnvelope {
	t.Helper()
	env, err := domain.NewDomainEvent(id, domain.UserCreated{UserPrimitives: domain.UserPrimitives{
		ID: id, Username: username, Email: username + "@example.com", Role: domain.RoleUser,
	}}).ToWire()
	require.NoError(t, err)
	return &env
}

func TestListenerCreatesPetUser(t *testing.T) {
	repo := memory.NewPetUserRepository()
	bus := &recordingBus{}
	listener := NewOnUserCreated(New(repo, bus, nil), nil)
	ctx := context.Background()

	require.NoError(t, listener.OnEvent(ctx, userCreatedEnvelope(t, "u1", "alice")))

	user, err := repo.FindByID(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username())
	require.Len(t, bus.events, 1)
	require.Equal(t, domain.EventPetUserCreated, bus.events[0].EventName())
}

func TestListenerToleratesRedeliveryAndNoise(t *testing.T) {
	repo := memory.NewPetUserRepository()
	bus := &recordingBus{}
	listener := NewOnUserCreated(New(repo, bus, nil), nil)
	ctx := context.Background()

	env := userCreatedEnvelope(t, "u1", "alice")
	require.NoError(t, listener.OnEvent(ctx, env))
	require.NoError(t, listener.OnEvent(ctx, env))
	require.Len(t, bus.events, 1)

	require.NoError(t, listener.OnEvent(ctx, nil))
	require.NoError(t, listener.OnEvent(ctx, &domain.WireEnvelope{
		EventName: "pet.created", Body: json.RawMessage(`{"id":"p1"}`),
	}))
	require.NoError(t, listener.OnEvent(ctx, &domain.WireEnvelope{
		EventName: "something.else", Body: json.RawMessage(`{}`),
	}))
	require.Len(t, bus.events, 1)
}

func TestListenerRejectsMalformedBody(t *testing.T) {
	listener := NewOnUserCreated(New(memory.NewPetUserRepository(), &recordingBus{}, nil), nil)
	err := listener.OnEvent(context.Background(), &domain.WireEnvelope{
		EventName: "user.created", Body: json.RawMessage(`"oops"`),
	})
	require.Error(t, err)
}

func TestCreateRejectsInvalidUsername(t *testing.T) {
	bus := &recordingBus{}
	uc := New(memory.NewPetUserRepository(), bus, nil)
	err := uc.Create(context.Background(), domain.PetUserPrimitives{ID: "u1", Username: ""})
	require.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	require.Empty(t, bus.events)
}
