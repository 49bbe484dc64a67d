package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc describes a graceful shutdown callback.
type ShutdownFunc func(ctx context.Context) error

// RunFunc is a long-running component. Returning a non-nil error stops the
// whole process.
type RunFunc func() error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager supervises background components, stops everything on the first
// failure or OS signal and runs shutdown hooks in reverse order.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	hooks    []hook
	runErr   error
	runOnce  sync.Once
	shutOnce sync.Once
	shutErr  error
}

// New creates a lifecycle manager with the desired timeout.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context is cancelled when the process should stop.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a shutdown hook. Hooks are executed in reverse order.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Go runs fn in the background. A failure cancels Context; a nil return
// after Context is done is a normal stop.
func (m *Manager) Go(name string, fn RunFunc) {
	go func() {
		err := fn()
		if err == nil || m.ctx.Err() != nil {
			return
		}
		m.logger.Error("component failed", zap.String("component", name), zap.Error(err))
		m.runOnce.Do(func() {
			m.mu.Lock()
			m.runErr = err
			m.mu.Unlock()
		})
		m.cancel()
	}()
}

// Wait blocks until Context is done and returns the component failure, if any.
func (m *Manager) Wait() error {
	<-m.ctx.Done()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runErr
}

// Stop cancels Context without waiting for hooks.
func (m *Manager) Stop() {
	m.cancel()
}

// Shutdown executes all registered hooks once, respecting the configured timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutOnce.Do(func() {
		m.cancel()
		m.shutErr = m.runHooks(ctx)
	})
	return m.shutErr
}

func (m *Manager) runHooks(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	hooks := append([]hook(nil), m.hooks...)
	m.mu.Unlock()

	var result error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", h.name))
	}
	return result
}

// Listen cancels Context when SIGTERM or SIGINT arrives.
func (m *Manager) Listen() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			m.cancel()
		case <-m.ctx.Done():
		}
	}()
}
