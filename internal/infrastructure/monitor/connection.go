package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/pets/internal/infrastructure/buffer"
)

// Pinger is implemented by every broker.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Targets lists what the monitor checks; nil fields are reported as disabled.
type Targets struct {
	Postgres *pgxpool.Pool
	Redis    *redislib.Client
	Broker   Pinger
	Outbox   *buffer.Store
}

type Monitor struct {
	targets Targets

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

func New(targets Targets, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		targets:  targets,
		interval: interval,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether every configured dependency answered the last check.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.status
	return s.PostgreSQL.healthy() && s.Redis.healthy() && s.Broker.healthy() && s.Outbox.healthy()
}

// BrokerOnline gates the outbox relay.
func (m *Monitor) BrokerOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Broker.healthy()
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh checks every dependency once and stores the result.
func (m *Monitor) Refresh() {
	status := Status{
		PostgreSQL: m.checkPostgres(),
		Redis:      m.checkRedis(),
		Broker:     m.checkBroker(),
		LastCheck:  time.Now(),
	}
	status.Outbox, status.OutboxSize, status.DeadLetters = m.checkOutbox()

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if previous.Broker.Online && !status.Broker.Online && status.Broker.Enabled {
		m.logger.Warn("broker went offline")
	}
}

func (m *Monitor) checkPostgres() Dependency {
	if m.targets.Postgres == nil {
		return Dependency{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return Dependency{Enabled: true, Online: m.targets.Postgres.Ping(ctx) == nil}
}

func (m *Monitor) checkRedis() Dependency {
	if m.targets.Redis == nil {
		return Dependency{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return Dependency{Enabled: true, Online: m.targets.Redis.Ping(ctx).Err() == nil}
}

func (m *Monitor) checkBroker() Dependency {
	if m.targets.Broker == nil {
		return Dependency{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := m.targets.Broker.Ping(ctx)
	if err != nil {
		m.logger.Debug("broker ping failed", zap.Error(err))
	}
	return Dependency{Enabled: true, Online: err == nil}
}

func (m *Monitor) checkOutbox() (Dependency, int, int) {
	if m.targets.Outbox == nil {
		return Dependency{}, 0, 0
	}
	size, err := m.targets.Outbox.Size()
	if err != nil {
		m.logger.Warn("outbox size check failed", zap.Error(err))
		return Dependency{Enabled: true}, 0, 0
	}
	dead, err := m.targets.Outbox.DeadSize()
	if err != nil {
		m.logger.Warn("outbox dead letter check failed", zap.Error(err))
	}
	return Dependency{Enabled: true, Online: true}, size, dead
}
