package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/internal/infrastructure/buffer"
)

type flakyPublisher struct {
	down bool
	keys []string
}

func (p *flakyPublisher) Publish(_ context.Context, key string, _ []byte) error {
	if p.down {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	return nil
}

type staticHealth bool

func (h staticHealth) BrokerOnline() bool { return bool(h) }

func openOutbox(t *testing.T) *buffer.Store {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func events(ids ...string) []domain.DomainEvent {
	out := make([]domain.DomainEvent, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.NewDomainEvent(id, domain.PetCreated{PetPrimitives: domain.PetPrimitives{ID: id}}))
	}
	return out
}

func TestOutboxBusPublishesDirectlyWhenHealthy(t *testing.T) {
	pub := &flakyPublisher{}
	store := openOutbox(t)
	bus := NewOutboxBus(pub, store, "events", nil)

	require.NoError(t, bus.Publish(context.Background(), events("p1", "p2")))
	require.Equal(t, []string{"events.p1.pet.created", "events.p2.pet.created"}, pub.keys)

	size, err := store.Size()
	require.NoError(t, err)
	require.Zero(t, size)
}

func TestOutboxBusParksAndRelayDeliversInOrder(t *testing.T) {
	pub := &flakyPublisher{down: true}
	store := openOutbox(t)
	bus := NewOutboxBus(pub, store, "events", nil)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, events("p1", "p2")))

	// Broker is back, but new events queue behind the parked ones.
	pub.down = false
	require.NoError(t, bus.Publish(ctx, events("p3")))
	require.Empty(t, pub.keys)

	relay := NewOutboxRelay(store, pub, staticHealth(true), nil, RelayConfig{MaxRetries: 3})
	delivered, err := relay.Drain(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, delivered)
	require.Equal(t, []string{
		"events.p1.pet.created",
		"events.p2.pet.created",
		"events.p3.pet.created",
	}, pub.keys)
	require.Zero(t, relay.Size())
}

func TestRelaySkipsWhenBrokerOffline(t *testing.T) {
	pub := &flakyPublisher{down: true}
	store := openOutbox(t)
	require.NoError(t, NewOutboxBus(pub, store, "events", nil).Publish(context.Background(), events("p1")))

	pub.down = false
	relay := NewOutboxRelay(store, pub, staticHealth(false), nil, RelayConfig{})
	delivered, err := relay.Drain(context.Background())
	require.NoError(t, err)
	require.Zero(t, delivered)
	require.Equal(t, 1, relay.Size())
}

func TestRelayBuriesAfterMaxRetries(t *testing.T) {
	pub := &flakyPublisher{down: true}
	store := openOutbox(t)
	ctx := context.Background()
	require.NoError(t, NewOutboxBus(pub, store, "events", nil).Publish(ctx, events("p1", "p2")))

	relay := NewOutboxRelay(store, pub, nil, nil, RelayConfig{MaxRetries: 2})

	_, err := relay.Drain(ctx)
	require.NoError(t, err)
	entries, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 1, entries[0].Attempts)
	require.Equal(t, 0, entries[1].Attempts, "drain stops at the first failure")

	// Second failure buries p1; p2 then fails once and stays parked.
	_, err = relay.Drain(ctx)
	require.NoError(t, err)
	dead, err := store.DeadSize()
	require.NoError(t, err)
	require.Equal(t, 1, dead)
	entries, err = store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "events.p2.pet.created", entries[0].RoutingKey)
	require.Equal(t, 1, entries[0].Attempts)
}

func TestRelayPurgesOldDeadLetters(t *testing.T) {
	pub := &flakyPublisher{down: true}
	store := openOutbox(t)
	ctx := context.Background()
	require.NoError(t, NewOutboxBus(pub, store, "events", nil).Publish(ctx, events("p1")))

	relay := NewOutboxRelay(store, pub, nil, nil, RelayConfig{MaxRetries: 1, DeadLetterRetention: time.Hour})
	_, err := relay.Drain(ctx)
	require.NoError(t, err)

	require.NoError(t, relay.PurgeDeadLetters(time.Now()))
	dead, err := store.DeadSize()
	require.NoError(t, err)
	require.Equal(t, 1, dead, "fresh dead letters are kept")

	require.NoError(t, relay.PurgeDeadLetters(time.Now().Add(2*time.Hour)))
	dead, err = store.DeadSize()
	require.NoError(t, err)
	require.Zero(t, dead)
}
