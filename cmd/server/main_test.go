package main

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/internal/infrastructure/broker"
	"github.com/fastygo/pets/internal/infrastructure/buffer"
	"github.com/fastygo/pets/internal/services"
	"github.com/fastygo/pets/internal/services/lifecycle"
)

type sink struct {
	mu   sync.Mutex
	keys []string
}

func (s *sink) Publish(_ context.Context, key string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

func TestShutdownDrainsBrokerBeforeClosingOutbox(t *testing.T) {
	outbox, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	require.NoError(t, err)

	exchange := broker.NewExchange("domain-events", 4, nil)
	out := &sink{}
	bus := services.NewOutboxBus(out, outbox, "events", nil)

	gate := make(chan struct{})
	published := make(chan error, 1)
	require.NoError(t, exchange.Subscribe("projection.q", "events.#.user.created", func(ctx context.Context, _ broker.Message) error {
		<-gate
		err := bus.Publish(ctx, []domain.DomainEvent{
			domain.NewDomainEvent("u1", domain.PetUserCreated{PetUserPrimitives: domain.PetUserPrimitives{ID: "u1", Username: "alice"}}),
		})
		published <- err
		return err
	}))

	manager := lifecycle.New(time.Second, nil)
	registerEventing(manager, exchange, outbox)

	require.NoError(t, exchange.Publish(context.Background(), "events.u1.user.created", []byte(`{}`)))

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(gate)
	}()
	require.NoError(t, manager.Shutdown(context.Background()))

	require.NoError(t, <-published)
	require.Equal(t, []string{"events.u1.pets.users.created"}, out.keys)
}
