package broker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 256

type memoryQueue struct {
	name     string
	pattern  string
	handler  Handler
	messages chan Message
}

// Exchange is an in-process topic exchange. Each bound queue owns a buffered
// channel drained by a single worker, so deliveries to one queue keep publish
// order while different queues run independently.
type Exchange struct {
	name      string
	queueSize int
	logger    *zap.Logger

	mu     sync.RWMutex
	queues map[string]*memoryQueue
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewExchange creates an exchange; queueSize <= 0 uses a default buffer.
func NewExchange(name string, queueSize int, logger *zap.Logger) *Exchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Exchange{
		name:      name,
		queueSize: queueSize,
		logger:    logger.With(zap.String("exchange", name)),
		queues:    make(map[string]*memoryQueue),
		done:      make(chan struct{}),
	}
}

var _ Broker = (*Exchange)(nil)

func (e *Exchange) Subscribe(queue, pattern string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("queue %s: nil handler", queue)
	}
	if err := ValidatePattern(pattern); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if _, ok := e.queues[queue]; ok {
		return fmt.Errorf("%w: %s", ErrQueueExists, queue)
	}

	q := &memoryQueue{
		name:     queue,
		pattern:  pattern,
		handler:  handler,
		messages: make(chan Message, e.queueSize),
	}
	e.queues[queue] = q

	e.wg.Add(1)
	go e.consume(q)

	e.logger.Info("queue bound", zap.String("queue", queue), zap.String("pattern", pattern))
	return nil
}

// Publish routes the message to every queue whose pattern matches. A message
// no queue is bound for is dropped. Sends to a full queue block until there is
// room, ctx is done or the exchange closes; no lock is held meanwhile.
func (e *Exchange) Publish(ctx context.Context, routingKey string, payload []byte) error {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*memoryQueue, 0, len(e.queues))
	for _, q := range e.queues {
		if MatchTopic(q.pattern, routingKey) {
			targets = append(targets, q)
		}
	}
	e.mu.RUnlock()

	if len(targets) == 0 {
		e.logger.Debug("message unroutable", zap.String("routing_key", routingKey))
		return nil
	}
	for _, q := range targets {
		msg := Message{RoutingKey: routingKey, Payload: append([]byte(nil), payload...)}
		select {
		case q.messages <- msg:
		case <-e.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (e *Exchange) Ping(context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

// Close stops accepting messages and waits for already queued deliveries to
// finish. Handlers that publish while the exchange drains get ErrClosed.
func (e *Exchange) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.done)
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

func (e *Exchange) consume(q *memoryQueue) {
	defer e.wg.Done()
	for {
		select {
		case msg := <-q.messages:
			e.deliver(q, msg)
		case <-e.done:
			for {
				select {
				case msg := <-q.messages:
					e.deliver(q, msg)
				default:
					return
				}
			}
		}
	}
}

func (e *Exchange) deliver(q *memoryQueue, msg Message) {
	if err := q.handler(context.Background(), msg); err != nil {
		e.logger.Error("queue handler failed",
			zap.String("queue", q.name),
			zap.String("routing_key", msg.RoutingKey),
			zap.Error(err),
		)
	}
}
