package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fastygo/pets/internal/infrastructure/buffer"
)

type fakeBroker struct{ err error }

func (f *fakeBroker) Ping(context.Context) error { return f.err }

func TestMonitorReportsBrokerAndOutbox(t *testing.T) {
	store, err := buffer.Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Enqueue(buffer.Entry{RoutingKey: "k", Payload: []byte(`{}`)}))

	broker := &fakeBroker{}
	m := New(Targets{Broker: broker, Outbox: store}, 0, nil)
	m.Refresh()

	status := m.GetStatus()
	require.False(t, status.PostgreSQL.Enabled)
	require.True(t, status.Broker.Online)
	require.True(t, status.Outbox.Online)
	require.Equal(t, 1, status.OutboxSize)
	require.True(t, m.IsOnline())
	require.True(t, m.BrokerOnline())

	broker.err = errors.New("down")
	m.Refresh()
	require.False(t, m.BrokerOnline())
	require.False(t, m.IsOnline())
}

func TestMonitorWithoutTargetsIsOnline(t *testing.T) {
	m := New(Targets{}, 0, nil)
	m.Refresh()
	require.True(t, m.IsOnline())
	m.Stop()
	m.Stop()
}
