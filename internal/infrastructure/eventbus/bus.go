// Package eventbus turns domain events into routed wire envelopes and back.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/internal/infrastructure/broker"
	"github.com/fastygo/pets/usecase"
)

// DefaultRoutingPrefix is the first word of every routing key unless configured otherwise.
const DefaultRoutingPrefix = "events"

const unknownAggregate = "unknown"

var unsafeRoutingChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeAggregateID replaces every character outside [A-Za-z0-9_.-] with '-'.
func SanitizeAggregateID(id string) string {
	if id == "" {
		return unknownAggregate
	}
	return unsafeRoutingChars.ReplaceAllString(id, "-")
}

// RoutingKey returns "{prefix}.{sanitized aggregate id}.{event name}".
func RoutingKey(prefix string, event domain.DomainEvent) string {
	if prefix == "" {
		prefix = DefaultRoutingPrefix
	}
	return prefix + "." + SanitizeAggregateID(event.AggregateID()) + "." + event.EventName().String()
}

// BindingPattern returns the pattern that receives eventName for any aggregate.
func BindingPattern(prefix string, eventName domain.EventName) string {
	if prefix == "" {
		prefix = DefaultRoutingPrefix
	}
	return prefix + ".#." + eventName.String()
}

// Publisher is the part of a broker the bus needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

// TopicBus publishes one broker message per event, in input order. The first
// failure aborts the remaining events and is returned to the caller.
type TopicBus struct {
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

func NewTopicBus(publisher Publisher, prefix string, logger *zap.Logger) *TopicBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = DefaultRoutingPrefix
	}
	return &TopicBus{publisher: publisher, prefix: prefix, logger: logger}
}

var _ usecase.EventBus = (*TopicBus)(nil)

func (b *TopicBus) Publish(ctx context.Context, events []domain.DomainEvent) error {
	for _, event := range events {
		key, payload, err := Encode(b.prefix, event)
		if err != nil {
			return err
		}
		if err := b.publisher.Publish(ctx, key, payload); err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
		b.logger.Debug("event published",
			zap.String("routing_key", key),
			zap.String("event_id", event.EventID()),
		)
	}
	return nil
}

// Encode produces the routing key and JSON wire envelope of one event.
func Encode(prefix string, event domain.DomainEvent) (string, []byte, error) {
	env, err := event.ToWire()
	if err != nil {
		return "", nil, err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", nil, fmt.Errorf("marshal envelope %s: %w", env.EventName, err)
	}
	return RoutingKey(prefix, event), payload, nil
}

// Consume adapts a listener to a broker queue handler. A JSON null payload is
// passed on as a nil envelope.
func Consume(listener usecase.DomainEventListener) broker.Handler {
	return func(ctx context.Context, msg broker.Message) error {
		var env *domain.WireEnvelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			return fmt.Errorf("decode envelope from %s: %w", msg.RoutingKey, err)
		}
		return listener.OnEvent(ctx, env)
	}
}
