package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	StatMin = 0
	StatMax = 100

	MaxUsernameLength = 20
	MaxPetNameLength  = 30
)

// Identifier is a non-empty opaque id.
type Identifier struct {
	value string
}

// NewIdentifier rejects blank ids.
func NewIdentifier(value string) (Identifier, error) {
	if strings.TrimSpace(value) == "" {
		return Identifier{}, invalid("identifier cannot be empty")
	}
	return Identifier{value: value}, nil
}

// NewUUIDIdentifier additionally requires a well-formed UUID.
func NewUUIDIdentifier(value string) (Identifier, error) {
	id, err := NewIdentifier(value)
	if err != nil {
		return Identifier{}, err
	}
	if _, err := uuid.Parse(value); err != nil {
		return Identifier{}, invalid("identifier %q is not a valid UUID", value)
	}
	return id, nil
}

func (i Identifier) Value() string              { return i.value }
func (i Identifier) String() string             { return i.value }
func (i Identifier) Equals(other Identifier) bool { return i.value == other.value }

// UserID and PetID are the identifiers of the user and pet aggregates.
type (
	UserID = Identifier
	PetID  = Identifier
)

// Username is a non-blank name of at most MaxUsernameLength characters.
type Username struct {
	value string
}

func NewUsername(value string) (Username, error) {
	if strings.TrimSpace(value) == "" || utf8.RuneCountInString(value) > MaxUsernameLength {
		return Username{}, invalid("invalid user name: %q", value)
	}
	return Username{value: value}, nil
}

func (u Username) Value() string { return u.value }

// PetName is a non-blank name of at most MaxPetNameLength characters
// once surrounding whitespace is ignored.
type PetName struct {
	value string
}

func NewPetName(value string) (PetName, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return PetName{}, invalid("pet name cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxPetNameLength {
		return PetName{}, invalid("pet name too long (max %d)", MaxPetNameLength)
	}
	return PetName{value: value}, nil
}

func (n PetName) Value() string            { return n.value }
func (n PetName) Equals(other PetName) bool { return n.value == other.value }

// statKind tags a Stat with the attribute it measures.
type statKind interface {
	label() string
}

type healthKind struct{}
type hungerKind struct{}
type staminaKind struct{}

func (healthKind) label() string  { return "health" }
func (hungerKind) label() string  { return "hunger" }
func (staminaKind) label() string { return "stamina" }

// Stat is an integer in [StatMin, StatMax]. Construction rejects values out of
// range; arithmetic clamps.
type Stat[K statKind] struct {
	value int
}

type (
	PetHealth  = Stat[healthKind]
	PetHunger  = Stat[hungerKind]
	PetStamina = Stat[staminaKind]
)

func newStat[K statKind](value int) (Stat[K], error) {
	if value < StatMin || value > StatMax {
		var k K
		return Stat[K]{}, invalid("%s must be between %d and %d, got %d", k.label(), StatMin, StatMax, value)
	}
	return Stat[K]{value: value}, nil
}

func NewPetHealth(value int) (PetHealth, error)   { return newStat[healthKind](value) }
func NewPetHunger(value int) (PetHunger, error)   { return newStat[hungerKind](value) }
func NewPetStamina(value int) (PetStamina, error) { return newStat[staminaKind](value) }

func (s Stat[K]) Value() int { return s.value }

// IncreaseBy adds a non-negative amount, saturating at StatMax.
func (s Stat[K]) IncreaseBy(amount int) Stat[K] {
	if amount <= 0 {
		return s
	}
	if amount >= StatMax-s.value {
		return Stat[K]{value: StatMax}
	}
	return Stat[K]{value: s.value + amount}
}

// DecreaseBy subtracts a non-negative amount, saturating at StatMin.
func (s Stat[K]) DecreaseBy(amount int) Stat[K] {
	if amount <= 0 {
		return s
	}
	if amount >= s.value-StatMin {
		return Stat[K]{value: StatMin}
	}
	return Stat[K]{value: s.value - amount}
}

func (s Stat[K]) IsMaxed() bool    { return s.value >= StatMax }
func (s Stat[K]) IsDepleted() bool { return s.value <= StatMin }

const (
	feedStep  = 10
	playStep  = 10
	sleepStep = 30
)

// FeedHunger lowers hunger by one meal.
func FeedHunger(h PetHunger) PetHunger { return h.DecreaseBy(feedStep) }
