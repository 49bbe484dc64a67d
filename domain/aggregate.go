package domain

// AggregateRoot is implemented by every aggregate that buffers domain events.
type AggregateRoot interface {
	PullDomainEvents() []DomainEvent
}

// EventRecorder is the per-aggregate FIFO buffer of not-yet-published events.
// Aggregates embed it by value; it is not safe for concurrent use, callers
// serialize access to a single aggregate instance.
type EventRecorder struct {
	events []DomainEvent
}

// Record appends an event to the buffer.
func (r *EventRecorder) Record(event DomainEvent) {
	r.events = append(r.events, event)
}

// PullDomainEvents returns the buffered events in append order and empties
// the buffer. A second call without an intervening Record returns nothing.
func (r *EventRecorder) PullDomainEvents() []DomainEvent {
	events := r.events
	r.events = nil
	if events == nil {
		return []DomainEvent{}
	}
	return events
}
