package domain

// PetUserPrimitives is the pets-context view of a user.
type PetUserPrimitives struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PetUser is the owner of pets inside the pets context, projected from user.created.
type PetUser struct {
	events EventRecorder

	id       UserID
	username Username
}

// CreatePetUser records pets.users.created.
func CreatePetUser(p PetUserPrimitives) (*PetUser, error) {
	user, err := PetUserFromPrimitives(p)
	if err != nil {
		return nil, err
	}
	user.events.Record(NewDomainEvent(user.id.Value(), PetUserCreated{user.ToPrimitives()}))
	return user, nil
}

func PetUserFromPrimitives(p PetUserPrimitives) (*PetUser, error) {
	id, err := NewIdentifier(p.ID)
	if err != nil {
		return nil, err
	}
	username, err := NewUsername(p.Username)
	if err != nil {
		return nil, err
	}
	return &PetUser{id: id, username: username}, nil
}

func (u *PetUser) ID() string       { return u.id.Value() }
func (u *PetUser) Username() string { return u.username.Value() }

func (u *PetUser) ToPrimitives() PetUserPrimitives {
	return PetUserPrimitives{ID: u.id.Value(), Username: u.username.Value()}
}

func (u *PetUser) PullDomainEvents() []DomainEvent {
	return u.events.PullDomainEvents()
}

var _ AggregateRoot = (*PetUser)(nil)
