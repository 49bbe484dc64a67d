package domain

import (
	"regexp"
	"strings"
	"time"
)

// UserRole is the authorization role carried in tokens.
type UserRole string

const (
	RoleUser  UserRole = "ROLE_USER"
	RoleAdmin UserRole = "ROLE_ADMIN"
)

const (
	maxEmailLength       = 254
	maxEmailLocalLength  = 64
	maxEmailDomainLength = 253
)

var (
	emailPattern = regexp.MustCompile(
		"^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
	disposableDomains = regexp.MustCompile(`(?i)^(10minutemail|guerrillamail|mailinator|tempmail|throwaway)\..*$`)
)

// UserEmail is a normalized (trimmed, lower-cased) and validated address.
type UserEmail struct {
	value string
}

func NewUserEmail(value string) (UserEmail, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return UserEmail{}, invalid("email cannot be empty or blank")
	}
	if len(email) > maxEmailLength {
		return UserEmail{}, invalid("email exceeds maximum length of %d characters", maxEmailLength)
	}
	if !emailPattern.MatchString(email) {
		return UserEmail{}, invalid("invalid email format: %s", email)
	}
	at := strings.LastIndex(email, "@")
	local, domainPart := email[:at], email[at+1:]
	switch {
	case len(local) > maxEmailLocalLength:
		return UserEmail{}, invalid("email local part exceeds maximum length of %d characters", maxEmailLocalLength)
	case len(domainPart) > maxEmailDomainLength:
		return UserEmail{}, invalid("email domain exceeds maximum length of %d characters", maxEmailDomainLength)
	case disposableDomains.MatchString(domainPart):
		return UserEmail{}, invalid("disposable email addresses are not allowed: %s", email)
	case !strings.Contains(domainPart, "."):
		return UserEmail{}, invalid("email domain must contain at least one dot: %s", email)
	case strings.HasPrefix(domainPart, "."), strings.HasSuffix(domainPart, "."),
		strings.HasPrefix(domainPart, "-"), strings.HasSuffix(domainPart, "-"):
		return UserEmail{}, invalid("invalid domain format: %s", domainPart)
	case strings.Contains(domainPart, ".."):
		return UserEmail{}, invalid("domain cannot contain consecutive dots: %s", domainPart)
	}
	return UserEmail{value: email}, nil
}

func (e UserEmail) Value() string { return e.value }

// Domain returns the part after '@'.
func (e UserEmail) Domain() string {
	return e.value[strings.LastIndex(e.value, "@")+1:]
}

// UserPassword holds an already hashed password.
type UserPassword struct {
	hash string
}

func NewUserPassword(hash string) (UserPassword, error) {
	if strings.TrimSpace(hash) == "" {
		return UserPassword{}, invalid("password cannot be empty")
	}
	return UserPassword{hash: hash}, nil
}

func (p UserPassword) Hash() string { return p.hash }

// UserPrimitives is the public projection of a user and the user.created body.
type UserPrimitives struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
}

// UserRecord is what the persistence layer stores for a user.
type UserRecord struct {
	UserPrimitives
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserParams carries the input of a registration; Password is already hashed.
type CreateUserParams struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
}

// User is the identity aggregate of the auth context.
type User struct {
	events EventRecorder

	id       UserID
	username Username
	email    UserEmail
	password UserPassword
	role     UserRole
}

// CreateUser validates a registration and records user.created.
func CreateUser(p CreateUserParams) (*User, error) {
	id, err := NewUUIDIdentifier(p.ID)
	if err != nil {
		return nil, err
	}
	username, err := NewUsername(p.Username)
	if err != nil {
		return nil, err
	}
	email, err := NewUserEmail(p.Email)
	if err != nil {
		return nil, err
	}
	password, err := NewUserPassword(p.PasswordHash)
	if err != nil {
		return nil, err
	}
	user := &User{
		id:       id,
		username: username,
		email:    email,
		password: password,
		role:     RoleUser,
	}
	user.events.Record(NewDomainEvent(id.Value(), UserCreated{user.ToPrimitives()}))
	return user, nil
}

// UserFromRecord rehydrates a stored user without recording events.
func UserFromRecord(r UserRecord) (*User, error) {
	id, err := NewIdentifier(r.ID)
	if err != nil {
		return nil, err
	}
	username, err := NewUsername(r.Username)
	if err != nil {
		return nil, err
	}
	email, err := NewUserEmail(r.Email)
	if err != nil {
		return nil, err
	}
	password, err := NewUserPassword(r.PasswordHash)
	if err != nil {
		return nil, err
	}
	role := r.Role
	if role == "" {
		role = RoleUser
	}
	return &User{id: id, username: username, email: email, password: password, role: role}, nil
}

func (u *User) ID() string           { return u.id.Value() }
func (u *User) Username() string     { return u.username.Value() }
func (u *User) Email() string        { return u.email.Value() }
func (u *User) Role() UserRole       { return u.role }
func (u *User) PasswordHash() string { return u.password.Hash() }

func (u *User) ToPrimitives() UserPrimitives {
	return UserPrimitives{
		ID:       u.id.Value(),
		Username: u.username.Value(),
		Email:    u.email.Value(),
		Role:     u.role,
	}
}

func (u *User) ToRecord() UserRecord {
	return UserRecord{UserPrimitives: u.ToPrimitives(), PasswordHash: u.password.Hash()}
}

func (u *User) PullDomainEvents() []DomainEvent {
	return u.events.PullDomainEvents()
}

var _ AggregateRoot = (*User)(nil)
