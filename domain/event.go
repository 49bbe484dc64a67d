package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OccurredOnLayout is the fixed wire format of DomainEvent.OccurredOn (UTC).
const OccurredOnLayout = "2006-01-02 15:04:05"

// EventName identifies an event kind. The set is closed: see KnownEventNames.
type EventName string

const (
	EventUserCreated    EventName = "user.created"
	EventPetCreated     EventName = "pet.created"
	EventPetRenamed     EventName = "pet.renamed"
	EventPetUserCreated EventName = "pets.users.created"
)

// KnownEventNames lists every event kind the domain can emit.
var KnownEventNames = []EventName{
	EventUserCreated,
	EventPetCreated,
	EventPetRenamed,
	EventPetUserCreated,
}

func (n EventName) String() string { return string(n) }

// ErrUnknownEvent is returned when decoding an envelope whose name is not part of the closed set.
var ErrUnknownEvent = errors.New("unknown event name")

// EventBody is the typed payload of one event kind. Only types in this
// package implement it.
type EventBody interface {
	EventName() EventName
	isEventBody()
}

// UserCreated is recorded when a user registers.
type UserCreated struct{ UserPrimitives }

// PetCreated is recorded when a pet is created.
type PetCreated struct{ PetPrimitives }

// PetRenamed carries the pet projection after the rename.
type PetRenamed struct{ PetPrimitives }

// PetUserCreated is recorded when the pets context learns about a new user.
type PetUserCreated struct{ PetUserPrimitives }

func (UserCreated) EventName() EventName    { return EventUserCreated }
func (PetCreated) EventName() EventName     { return EventPetCreated }
func (PetRenamed) EventName() EventName     { return EventPetRenamed }
func (PetUserCreated) EventName() EventName { return EventPetUserCreated }

func (UserCreated) isEventBody()    {}
func (PetCreated) isEventBody()     {}
func (PetRenamed) isEventBody()     {}
func (PetUserCreated) isEventBody() {}

var nowFunc = time.Now

// DomainEvent is an immutable record of something that happened to an aggregate.
type DomainEvent struct {
	eventID     string
	aggregateID string
	occurredOn  string
	body        EventBody
}

// NewDomainEvent assigns a random event id and the current time.
func NewDomainEvent(aggregateID string, body EventBody) DomainEvent {
	return DomainEvent{
		eventID:     uuid.NewString(),
		aggregateID: aggregateID,
		occurredOn:  nowFunc().UTC().Format(OccurredOnLayout),
		body:        body,
	}
}

func (e DomainEvent) EventID() string     { return e.eventID }
func (e DomainEvent) AggregateID() string { return e.aggregateID }
func (e DomainEvent) OccurredOn() string  { return e.occurredOn }
func (e DomainEvent) Body() EventBody     { return e.body }

// EventName returns the name of the event kind, or "" for a zero DomainEvent.
func (e DomainEvent) EventName() EventName {
	if e.body == nil {
		return ""
	}
	return e.body.EventName()
}

// WireEnvelope is the externally visible form of an event. The event id
// stays internal.
type WireEnvelope struct {
	EventName   string          `json:"eventName"`
	OccurredOn  string          `json:"occurredOn"`
	AggregateID string          `json:"aggregateId"`
	Body        json.RawMessage `json:"body"`
}

// ToWire serializes the event into its wire envelope.
func (e DomainEvent) ToWire() (WireEnvelope, error) {
	if e.body == nil {
		return WireEnvelope{}, fmt.Errorf("event %s has no body", e.eventID)
	}
	body, err := json.Marshal(e.body)
	if err != nil {
		return WireEnvelope{}, fmt.Errorf("marshal %s body: %w", e.EventName(), err)
	}
	return WireEnvelope{
		EventName:   string(e.EventName()),
		OccurredOn:  e.occurredOn,
		AggregateID: e.aggregateID,
		Body:        body,
	}, nil
}

// DecodeBody turns a wire envelope back into its typed body.
func DecodeBody(env WireEnvelope) (EventBody, error) {
	var (
		body EventBody
		err  error
	)
	switch EventName(env.EventName) {
	case EventUserCreated:
		var b UserCreated
		err = json.Unmarshal(env.Body, &b)
		body = b
	case EventPetCreated:
		var b PetCreated
		err = json.Unmarshal(env.Body, &b)
		body = b
	case EventPetRenamed:
		var b PetRenamed
		err = json.Unmarshal(env.Body, &b)
		body = b
	case EventPetUserCreated:
		var b PetUserCreated
		err = json.Unmarshal(env.Body, &b)
		body = b
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.EventName)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", env.EventName, err)
	}
	return body, nil
}
