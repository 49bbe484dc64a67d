package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBucket     = "outbox"
	deadLetterSuffix  = "_dead"
	defaultBatchLimit = 50
)

// Entry is a routed wire envelope that still has to reach the broker.
type Entry struct {
	ID         string          `json:"id"`
	RoutingKey string          `json:"routing_key"`
	EventName  string          `json:"event_name"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"last_error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (e *Entry) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
