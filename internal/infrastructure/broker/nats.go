package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig configures the NATS broker.
type NATSConfig struct {
	URL     string
	Name    string
	Timeout time.Duration
	Conn    *nats.Conn
}

// NATSBroker maps routing keys onto NATS subjects. Queues become NATS queue
// groups so that one member of a group receives each message.
type NATSBroker struct {
	conn     *nats.Conn
	ownsConn bool
	logger   *zap.Logger

	mu     sync.Mutex
	queues map[string]*nats.Subscription
	closed bool
}

// NewNATSBroker connects to NATS unless cfg.Conn is already provided.
func NewNATSBroker(cfg NATSConfig, logger *zap.Logger) (*NATSBroker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn := cfg.Conn
	owns := false
	if conn == nil {
		if cfg.URL == "" {
			cfg.URL = nats.DefaultURL
		}
		if cfg.Timeout <= 0 {
			cfg.Timeout = 5 * time.Second
		}
		var err error
		conn, err = nats.Connect(cfg.URL,
			nats.Name(cfg.Name),
			nats.Timeout(cfg.Timeout),
			nats.MaxReconnects(-1),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("nats disconnected", zap.Error(err))
				}
			}),
			nats.ReconnectHandler(func(c *nats.Conn) {
				logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		owns = true
	}
	return &NATSBroker{
		conn:     conn,
		ownsConn: owns,
		logger:   logger.With(zap.String("broker", "nats")),
		queues:   make(map[string]*nats.Subscription),
	}, nil
}

var _ Broker = (*NATSBroker)(nil)

func (b *NATSBroker) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.isClosed() {
		return ErrClosed
	}
	return b.conn.Publish(routingKey, payload)
}

// Subscribe binds queue to pattern. NATS has no mid-subject multi-word
// wildcard, so the subscription covers everything under the pattern's literal
// prefix and deliveries are filtered with MatchTopic.
func (b *NATSBroker) Subscribe(queue, pattern string, handler Handler) error {
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

	subject := natsSubject(pattern)
	sub, err := b.conn.QueueSubscribe(subject, queue, func(m *nats.Msg) {
		if !MatchTopic(pattern, m.Subject) {
			return
		}
		if err := handler(context.Background(), Message{RoutingKey: m.Subject, Payload: m.Data}); err != nil {
			b.logger.Error("queue handler failed",
				zap.String("queue", queue),
				zap.String("subject", m.Subject),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.queues[queue] = sub
	b.logger.Info("queue bound", zap.String("queue", queue), zap.String("subject", subject), zap.String("pattern", pattern))
	return nil
}

func (b *NATSBroker) Ping(ctx context.Context) error {
	if b.isClosed() {
		return ErrClosed
	}
	if !b.conn.IsConnected() {
		return errors.New("nats not connected")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}
	return b.conn.FlushWithContext(ctx)
}

func (b *NATSBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for name, sub := range b.queues {
		if err := sub.Drain(); err != nil {
			b.logger.Warn("drain subscription", zap.String("queue", name), zap.Error(err))
		}
		delete(b.queues, name)
	}
	if b.ownsConn {
		return b.conn.Drain()
	}
	return nil
}

func (b *NATSBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// natsSubject turns a topic pattern into the NATS subject that covers it.
func natsSubject(pattern string) string {
	prefix, wildcard := literalPrefix(pattern)
	if !wildcard {
		return pattern
	}
	if prefix == "" {
		return ">"
	}
	return prefix + ".>"
}
