package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
	"github.com/fastygo/pets/usecase"
)

// RegisterInput is the payload of a registration. Password is in plain text.
type RegisterInput struct {
	ID       string
	Username string
	Email    string
	Password string
}

// LoginInput identifies the user by email or username.
type LoginInput struct {
	Identifier string
	Password   string
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
	User      domain.UserPrimitives `json:"user"`
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	hasher   usecase.PasswordHasher
	tokens   usecase.TokenIssuer
	bus      usecase.EventBus
	tokenTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

type Deps struct {
	Users    repository.UserRepository
	Sessions repository.SessionRepository
	Hasher   usecase.PasswordHasher
	Tokens   usecase.TokenIssuer
	Bus      usecase.EventBus
	TokenTTL time.Duration
	Logger   *zap.Logger
}

func New(deps Deps) *UseCase {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.TokenTTL <= 0 {
		deps.TokenTTL = time.Hour
	}
	return &UseCase{
		users:    deps.Users,
		sessions: deps.Sessions,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		bus:      deps.Bus,
		tokenTTL: deps.TokenTTL,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Register hashes the password, checks uniqueness by id, email and username,
// saves the user and publishes user.created.
func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (domain.UserPrimitives, error) {
	if strings.TrimSpace(in.Password) == "" {
		return domain.UserPrimitives{}, domain.NewError(domain.ErrCodeInvalid, "password cannot be empty")
	}
	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return domain.UserPrimitives{}, domain.WrapError(domain.ErrCodeInternal, "hash password", err)
	}

	user, err := domain.CreateUser(domain.CreateUserParams{
		ID:           in.ID,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return domain.UserPrimitives{}, err
	}

	if err := uc.ensureUnique(ctx, user); err != nil {
		return domain.UserPrimitives{}, err
	}

	if err := uc.users.Save(ctx, user); err != nil {
		return domain.UserPrimitives{}, err
	}
	if err := uc.bus.Publish(ctx, user.PullDomainEvents()); err != nil {
		uc.logger.Error("user saved but user.created not published", zap.String("user_id", user.ID()), zap.Error(err))
		return domain.UserPrimitives{}, err
	}

	uc.logger.Info("user registered", zap.String("user_id", user.ID()))
	return user.ToPrimitives(), nil
}

func (uc *UseCase) ensureUnique(ctx context.Context, user *domain.User) error {
	lookups := []func() (*domain.User, error){
		func() (*domain.User, error) { return uc.users.FindByID(ctx, user.ID()) },
		func() (*domain.User, error) { return uc.users.FindByEmail(ctx, user.Email()) },
		func() (*domain.User, error) { return uc.users.FindByUsername(ctx, user.Username()) },
	}
	for _, find := range lookups {
		_, err := find()
		switch {
		case err == nil:
			return domain.ErrUserAlreadyExists
		case errors.Is(err, domain.ErrUserNotFound):
			continue
		default:
			return err
		}
	}
	return nil
}

// Login verifies the credentials, stores a session and signs a token for it.
func (uc *UseCase) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	identifier := strings.TrimSpace(in.Identifier)
	if identifier == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	var (
		user *domain.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = uc.users.FindByEmail(ctx, identifier)
	} else {
		user, err = uc.users.FindByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !uc.hasher.Matches(in.Password, user.PasswordHash()) {
		return nil, domain.ErrInvalidCredentials
	}

	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID(),
		Role:      user.Role(),
		CreatedAt: now,
		ExpiresAt: now.Add(uc.tokenTTL),
	}
	token, err := uc.tokens.Issue(session)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "issue token", err)
	}
	session.Token = token
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	uc.logger.Info("user logged in", zap.String("user_id", user.ID()), zap.String("session_id", session.ID))
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user.ToPrimitives()}, nil
}

// GetSession returns a live session or domain.ErrSessionNotFound.
func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(uc.now()) {
		_ = uc.sessions.Delete(ctx, sessionID)
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Refresh slides the session's expiry by the token TTL and signs a new token
// for it. The old token stays valid until its own expiry.
func (uc *UseCase) Refresh(ctx context.Context, sessionID string) (*LoginResult, error) {
	if err := uc.sessions.Extend(ctx, sessionID, int(uc.tokenTTL.Seconds())); err != nil {
		return nil, err
	}
	session, err := uc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	user, err := uc.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	token, err := uc.tokens.Issue(session)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "issue token", err)
	}
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user.ToPrimitives()}, nil
}

// Logout revokes the session; the token stops working even before it expires.
func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	return uc.sessions.Delete(ctx, sessionID)
}

// Me returns the public projection of a user.
func (uc *UseCase) Me(ctx context.Context, userID string) (domain.UserPrimitives, error) {
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return domain.UserPrimitives{}, err
	}
	return user.ToPrimitives(), nil
}
