package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store is a bbolt-backed FIFO of outbox entries. Keys sort by enqueue time,
// so GetBatch returns entries in the order they were stored.
type Store struct {
	db     *bolt.DB
	bucket []byte
	dead   []byte
	seq    atomic.Uint64
}

// Open initializes the BoltDB file and ensures both buckets exist.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		bucket: []byte(bucket),
		dead:   []byte(bucket + deadLetterSuffix),
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{s.bucket, s.dead} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Enqueue appends an entry at the tail.
func (s *Store) Enqueue(entry Entry) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	entry.normalize()
	entry.bucketKey = []byte(s.buildKey(entry))
	return s.put(s.bucket, entry)
}

// GetBatch returns up to limit entries from the head without removing them.
func (s *Store) GetBatch(limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, v := c.First(); k != nil && len(entries) < limit; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entry.bucketKey = append([]byte(nil), k...)
			entries = append(entries, entry)
		}
		return nil
	})
	return entries, err
}

// Remove deletes an entry returned by GetBatch.
func (s *Store) Remove(entry Entry) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(entry.bucketKey) == 0 {
		return fmt.Errorf("outbox entry %s has no key", entry.ID)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(entry.bucketKey)
	})
}

// Update rewrites an entry in place, keeping its position in the queue.
func (s *Store) Update(entry Entry) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(entry.bucketKey) == 0 {
		return fmt.Errorf("outbox entry %s has no key", entry.ID)
	}
	return s.put(s.bucket, entry)
}

// Bury moves an entry to the dead-letter bucket.
func (s *Store) Bury(entry Entry) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	if len(entry.bucketKey) == 0 {
		return fmt.Errorf("outbox entry %s has no key", entry.ID)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(s.dead).Put(entry.bucketKey, payload); err != nil {
			return err
		}
		return tx.Bucket(s.bucket).Delete(entry.bucketKey)
	})
}

// Size returns the number of pending entries.
func (s *Store) Size() (int, error) {
	return s.count(s.bucket)
}

// DeadSize returns the number of buried entries.
func (s *Store) DeadSize() (int, error) {
	return s.count(s.dead)
}

// Cleanup removes dead letters older than the provided timestamp.
func (s *Store) Cleanup(olderThan time.Time) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.dead).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			if entry.Timestamp.Before(olderThan) {
				if err := c.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) put(bucket []byte, entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(entry.bucketKey, payload)
	})
}

func (s *Store) count(bucket []byte) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// buildKey orders by timestamp, then by a process-local sequence for entries
// stored within the same nanosecond.
func (s *Store) buildKey(entry Entry) string {
	return fmt.Sprintf("%020d_%010d_%s", entry.Timestamp.UnixNano(), s.seq.Add(1), entry.ID)
}
