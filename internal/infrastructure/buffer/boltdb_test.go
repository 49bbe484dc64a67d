package buffer

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "outbox.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreIsFIFO(t *testing.T) {
	store := openStore(t)
	ts := time.Now()
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Enqueue(Entry{
			RoutingKey: "events." + key + ".pet.created",
			Payload:    json.RawMessage(`{}`),
			Timestamp:  ts,
		}))
	}

	entries, err := store.GetBatch(10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "events.a.pet.created", entries[0].RoutingKey)
	require.Equal(t, "events.c.pet.created", entries[2].RoutingKey)

	require.NoError(t, store.Remove(entries[0]))
	size, err := store.Size()
	require.NoError(t, err)
	require.Equal(t, 2, size)

	head, err := store.GetBatch(1)
	require.NoError(t, err)
	require.Equal(t, "events.b.pet.created", head[0].RoutingKey)
}

func TestStoreUpdateKeepsPosition(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Entry{RoutingKey: "first", Payload: json.RawMessage(`{}`)}))
	require.NoError(t, store.Enqueue(Entry{RoutingKey: "second", Payload: json.RawMessage(`{}`)}))

	entries, err := store.GetBatch(0)
	require.NoError(t, err)
	head := entries[0]
	head.Attempts = 2
	head.LastError = "broker down"
	require.NoError(t, store.Update(head))

	entries, err = store.GetBatch(0)
	require.NoError(t, err)
	require.Equal(t, "first", entries[0].RoutingKey)
	require.Equal(t, 2, entries[0].Attempts)
	require.Equal(t, "broker down", entries[0].LastError)
}

func TestStoreBuryAndCleanup(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Enqueue(Entry{RoutingKey: "k", Payload: json.RawMessage(`{}`), Timestamp: time.Now().Add(-48 * time.Hour)}))

	entries, err := store.GetBatch(1)
	require.NoError(t, err)
	require.NoError(t, store.Bury(entries[0]))

	pending, err := store.Size()
	require.NoError(t, err)
	dead, err := store.DeadSize()
	require.NoError(t, err)
	require.Equal(t, 0, pending)
	require.Equal(t, 1, dead)

	require.NoError(t, store.Cleanup(time.Now().Add(-24*time.Hour)))
	dead, err = store.DeadSize()
	require.NoError(t, err)
	require.Equal(t, 0, dead)
}

func TestRemoveRequiresStoredEntry(t *testing.T) {
	store := openStore(t)
	require.Error(t, store.Remove(Entry{ID: "x"}))
	require.Error(t, store.Update(Entry{ID: "x"}))
}
