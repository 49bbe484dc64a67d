package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/internal/infrastructure/buffer"
	"github.com/fastygo/pets/internal/infrastructure/eventbus"
	"github.com/fastygo/pets/usecase"
)

// OutboxStore is the part of buffer.Store the outbox needs.
type OutboxStore interface {
	Enqueue(entry buffer.Entry) error
	GetBatch(limit int) ([]buffer.Entry, error)
	Remove(entry buffer.Entry) error
	Update(entry buffer.Entry) error
	Bury(entry buffer.Entry) error
	Size() (int, error)
	Cleanup(olderThan time.Time) error
}

// OutboxBus publishes like eventbus.TopicBus but parks events in the outbox
// when the broker rejects them. Once anything is parked, later events queue
// behind it so the relay delivers them in order.
type OutboxBus struct {
	publisher eventbus.Publisher
	store     OutboxStore
	prefix    string
	logger    *zap.Logger
}

func NewOutboxBus(publisher eventbus.Publisher, store OutboxStore, prefix string, logger *zap.Logger) *OutboxBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = eventbus.DefaultRoutingPrefix
	}
	return &OutboxBus{publisher: publisher, store: store, prefix: prefix, logger: logger}
}

var _ usecase.EventBus = (*OutboxBus)(nil)

func (b *OutboxBus) Publish(ctx context.Context, events []domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	pending, err := b.store.Size()
	if err != nil {
		return fmt.Errorf("outbox size: %w", err)
	}
	parking := pending > 0

	for _, event := range events {
		key, payload, err := eventbus.Encode(b.prefix, event)
		if err != nil {
			return err
		}
		if !parking {
			pubErr := b.publisher.Publish(ctx, key, payload)
			if pubErr == nil {
				continue
			}
			b.logger.Warn("broker publish failed, parking in outbox",
				zap.String("routing_key", key),
				zap.Error(pubErr),
			)
			parking = true
		}
		entry := buffer.Entry{
			ID:         event.EventID(),
			RoutingKey: key,
			EventName:  event.EventName().String(),
			Payload:    payload,
		}
		if err := b.store.Enqueue(entry); err != nil {
			return fmt.Errorf("outbox enqueue %s: %w", key, err)
		}
	}
	return nil
}
