// Package broker provides topic-routed publish/subscribe transports. A queue
// is bound to one topic pattern; every message whose routing key matches the
// pattern is delivered to the queue's handler.
package broker

import (
	"context"
	"errors"
)

// Message is one delivery as seen by a queue handler.
type Message struct {
	RoutingKey string
	Payload    []byte
}

// Handler consumes deliveries of a single queue.
type Handler func(ctx context.Context, msg Message) error

// Broker is the transport the event bus publishes to and listeners consume from.
type Broker interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Subscribe(queue, pattern string, handler Handler) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrClosed         = errors.New("broker is closed")
	ErrQueueExists    = errors.New("queue already bound")
	ErrInvalidPattern = errors.New("invalid topic pattern")
)
