package domain

import "strings"

// PetType is the immutable species of a pet.
type PetType string

const (
	PetTypeCat    PetType = "CAT"
	PetTypeDog    PetType = "DOG"
	PetTypeRabbit PetType = "RABBIT"
	PetTypeCanary PetType = "CANARY"
)

// ParsePetType accepts the species name in any case.
func ParsePetType(value string) (PetType, error) {
	switch t := PetType(strings.ToUpper(strings.TrimSpace(value))); t {
	case PetTypeCat, PetTypeDog, PetTypeRabbit, PetTypeCanary:
		return t, nil
	default:
		return "", invalid("unsupported pet type %q", value)
	}
}

// InitialStatValue is the starting health, hunger and stamina of a new pet.
const InitialStatValue = 50

// PetPrimitives is the flat projection of a Pet used for persistence and event bodies.
type PetPrimitives struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	OwnerID string  `json:"ownerId"`
	Health  int     `json:"health"`
	Hunger  int     `json:"hunger"`
	Stamina int     `json:"stamina"`
	Type    PetType `json:"type"`
}

// Pet is the aggregate whose stats are driven by feed, play and sleep.
type Pet struct {
	events EventRecorder

	id      PetID
	ownerID UserID
	petType PetType
	name    PetName
	health  PetHealth
	hunger  PetHunger
	stamina PetStamina
}

// CreatePet builds a new pet with the starting stats and records pet.created.
func CreatePet(id, name, ownerID string, petType PetType) (*Pet, error) {
	pet, err := PetFromPrimitives(PetPrimitives{
		ID:      id,
		Name:    name,
		OwnerID: ownerID,
		Health:  InitialStatValue,
		Hunger:  InitialStatValue,
		Stamina: InitialStatValue,
		Type:    petType,
	})
	if err != nil {
		return nil, err
	}
	pet.events.Record(NewDomainEvent(pet.id.Value(), PetCreated{pet.ToPrimitives()}))
	return pet, nil
}

// PetFromPrimitives rehydrates a pet without recording any event.
func PetFromPrimitives(p PetPrimitives) (*Pet, error) {
	id, err := NewIdentifier(p.ID)
	if err != nil {
		return nil, err
	}
	ownerID, err := NewIdentifier(p.OwnerID)
	if err != nil {
		return nil, err
	}
	petType, err := ParsePetType(string(p.Type))
	if err != nil {
		return nil, err
	}
	name, err := NewPetName(p.Name)
	if err != nil {
		return nil, err
	}
	health, err := NewPetHealth(p.Health)
	if err != nil {
		return nil, err
	}
	hunger, err := NewPetHunger(p.Hunger)
	if err != nil {
		return nil, err
	}
	stamina, err := NewPetStamina(p.Stamina)
	if err != nil {
		return nil, err
	}
	return &Pet{
		id:      id,
		ownerID: ownerID,
		petType: petType,
		name:    name,
		health:  health,
		hunger:  hunger,
		stamina: stamina,
	}, nil
}

func (p *Pet) ToPrimitives() PetPrimitives {
	return PetPrimitives{
		ID:      p.id.Value(),
		Name:    p.name.Value(),
		OwnerID: p.ownerID.Value(),
		Health:  p.health.Value(),
		Hunger:  p.hunger.Value(),
		Stamina: p.stamina.Value(),
		Type:    p.petType,
	}
}

func (p *Pet) ID() string      { return p.id.Value() }
func (p *Pet) OwnerID() string { return p.ownerID.Value() }
func (p *Pet) Type() PetType   { return p.petType }
func (p *Pet) Name() string    { return p.name.Value() }
func (p *Pet) Health() int     { return p.health.Value() }
func (p *Pet) Hunger() int     { return p.hunger.Value() }
func (p *Pet) Stamina() int    { return p.stamina.Value() }

// OwnedBy reports whether userID is the pet's owner.
func (p *Pet) OwnedBy(userID string) bool {
	return p.ownerID.Value() == userID
}

// Rename changes the name and records pet.renamed. Renaming to the current
// name is a no-op.
func (p *Pet) Rename(newName string) error {
	name, err := NewPetName(newName)
	if err != nil {
		return err
	}
	if name.Equals(p.name) {
		return nil
	}
	p.name = name
	p.events.Record(NewDomainEvent(p.id.Value(), PetRenamed{p.ToPrimitives()}))
	return nil
}

// Feed lowers hunger. It never fails and records no event.
func (p *Pet) Feed() {
	p.hunger = FeedHunger(p.hunger)
}

// Play spends stamina and makes the pet hungrier. Both guards look at the
// current values, so a pet at stamina 10 can play once more.
func (p *Pet) Play() error {
	if p.stamina.IsDepleted() {
		return ErrLowStamina
	}
	if p.hunger.IsMaxed() {
		return ErrTooHungry
	}
	p.stamina = p.stamina.DecreaseBy(playStep)
	p.hunger = p.hunger.IncreaseBy(playStep)
	return nil
}

// Sleep restores stamina. It never fails and records no event.
func (p *Pet) Sleep() {
	p.stamina = p.stamina.IncreaseBy(sleepStep)
}

// PullDomainEvents drains the events recorded since the last pull.
func (p *Pet) PullDomainEvents() []DomainEvent {
	return p.events.PullDomainEvents()
}

var _ AggregateRoot = (*Pet)(nil)

// PetWithOwner is the read model returned to clients.
type PetWithOwner struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	OwnerID       string  `json:"ownerId"`
	OwnerUsername string  `json:"ownerUsername"`
	Health        int     `json:"health"`
	Hunger        int     `json:"hunger"`
	Stamina       int     `json:"stamina"`
	Type          PetType `json:"type"`
}

// NewPetWithOwner joins a pet with its owner's username.
func NewPetWithOwner(p PetPrimitives, ownerUsername string) PetWithOwner {
	return PetWithOwner{
		ID:            p.ID,
		Name:          p.Name,
		OwnerID:       p.OwnerID,
		OwnerUsername: ownerUsername,
		Health:        p.Health,
		Hunger:        p.Hunger,
		Stamina:       p.Stamina,
		Type:          p.Type,
	}
}
