package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker publishes on Redis pub/sub channels named after the routing
// key. Every subscribed process receives each message; queues only separate
// handlers inside one process.
type RedisBroker struct {
	client *goredis.Client
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	queues map[string]*goredis.PubSub
	closed bool
}

func NewRedisBroker(client *goredis.Client, logger *zap.Logger) *RedisBroker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBroker{
		client: client,
		logger: logger.With(zap.String("broker", "redis")),
		ctx:    ctx,
		cancel: cancel,
		queues: make(map[string]*goredis.PubSub),
	}
}

var _ Broker = (*RedisBroker)(nil)

func (b *RedisBroker) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return b.client.Publish(ctx, routingKey, payload).Err()
}

// Subscribe binds queue to pattern with a glob over the pattern's literal
// prefix; deliveries are filtered with MatchTopic.
func (b *RedisBroker) Subscribe(queue, pattern string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("queue %s: nil handler", queue)
	}
	if err := ValidatePattern(pattern); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.queues[queue]; ok {
		return fmt.Errorf("%w: %s", ErrQueueExists, queue)
	}

	glob := redisGlob(pattern)
	sub := b.client.PSubscribe(b.ctx, glob)
	if _, err := sub.Receive(b.ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe %s: %w", glob, err)
	}
	b.queues[queue] = sub

	b.wg.Add(1)
	go b.forward(queue, pattern, sub, handler)

	b.logger.Info("queue bound", zap.String("queue", queue), zap.String("glob", glob), zap.String("pattern", pattern))
	return nil
}

func (b *RedisBroker) forward(queue, pattern string, sub *goredis.PubSub, handler Handler) {
	defer b.wg.Done()
	ch := sub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case m, ok := <-ch:
			if !ok || m == nil {
				return
			}
			if !MatchTopic(pattern, m.Channel) {
				continue
			}
			msg := Message{RoutingKey: m.Channel, Payload: []byte(m.Payload)}
			if err := handler(b.ctx, msg); err != nil {
				b.logger.Error("queue handler failed",
					zap.String("queue", queue),
					zap.String("channel", m.Channel),
					zap.Error(err),
				)
			}
		}
	}
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close stops the forwarders. The client itself is owned by the caller.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.cancel()
	for name, sub := range b.queues {
		if err := sub.Close(); err != nil {
			b.logger.Warn("close subscription", zap.String("queue", name), zap.Error(err))
		}
		delete(b.queues, name)
	}
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func redisGlob(pattern string) string {
	prefix, wildcard := literalPrefix(pattern)
	if !wildcard {
		return globEscaper.Replace(pattern)
	}
	return globEscaper.Replace(prefix) + "*"
}
