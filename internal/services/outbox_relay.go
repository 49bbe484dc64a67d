package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/pets/internal/infrastructure/eventbus"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	BrokerOnline() bool
}

// RelayConfig controls how frequently the outbox is drained.
type RelayConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// DeadLetterRetention is how long buried entries are kept. Zero keeps them.
	DeadLetterRetention time.Duration
}

// OutboxRelay republishes parked envelopes on a cron schedule. Entries that
// keep failing are moved to the dead-letter bucket after MaxRetries attempts.
type OutboxRelay struct {
	store     OutboxStore
	publisher eventbus.Publisher
	monitor   ConnectionHealth
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       RelayConfig
}

func NewOutboxRelay(
	store OutboxStore,
	publisher eventbus.Publisher,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg RelayConfig,
) *OutboxRelay {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &OutboxRelay{
		store:     store,
		publisher: publisher,
		monitor:   monitor,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := r.Drain(ctx); err != nil {
			r.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	if cfg.DeadLetterRetention > 0 {
		_, _ = r.cron.AddFunc("@hourly", func() {
			if err := r.PurgeDeadLetters(time.Now()); err != nil {
				r.logger.Error("dead letter cleanup failed", zap.Error(err))
			}
		})
	}

	return r
}

// PurgeDeadLetters drops buried entries older than the retention window.
func (r *OutboxRelay) PurgeDeadLetters(now time.Time) error {
	if r == nil || r.store == nil || r.cfg.DeadLetterRetention <= 0 {
		return nil
	}
	return r.store.Cleanup(now.Add(-r.cfg.DeadLetterRetention))
}

// Start launches the cron scheduler.
func (r *OutboxRelay) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("outbox relay started", zap.Duration("interval", r.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (r *OutboxRelay) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("outbox relay stopped")
}

// Drain publishes one batch from the head of the outbox and returns how many
// entries were delivered. It stops at the first failure so later entries
// never overtake an earlier one.
func (r *OutboxRelay) Drain(ctx context.Context) (int, error) {
	if r == nil || r.store == nil {
		return 0, nil
	}
	if r.monitor != nil && !r.monitor.BrokerOnline() {
		r.logger.Debug("skipping outbox drain (broker offline)")
		return 0, nil
	}

	entries, err := r.store.GetBatch(r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		pubErr := r.publisher.Publish(ctx, entry.RoutingKey, entry.Payload)
		if pubErr == nil {
			if err := r.store.Remove(entry); err != nil {
				return delivered, fmt.Errorf("remove delivered entry %s: %w", entry.ID, err)
			}
			delivered++
			continue
		}

		entry.Attempts++
		entry.LastError = pubErr.Error()
		if entry.Attempts >= r.cfg.MaxRetries {
			r.logger.Error("outbox entry moved to dead letters (max retries reached)",
				zap.String("entry_id", entry.ID),
				zap.String("routing_key", entry.RoutingKey),
				zap.Error(pubErr),
			)
			if err := r.store.Bury(entry); err != nil {
				return delivered, err
			}
			continue
		}

		r.logger.Warn("outbox publish failed",
			zap.String("entry_id", entry.ID),
			zap.Int("attempts", entry.Attempts),
			zap.Error(pubErr),
		)
		if err := r.store.Update(entry); err != nil {
			return delivered, err
		}
		break
	}

	if delivered > 0 {
		r.logger.Info("outbox drained", zap.Int("delivered", delivered))
	}
	return delivered, nil
}

// Size returns the number of parked entries.
func (r *OutboxRelay) Size() int {
	if r == nil || r.store == nil {
		return 0
	}
	size, err := r.store.Size()
	if err != nil {
		return 0
	}
	return size
}
