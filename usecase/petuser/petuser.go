package petuser

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/repository"
	"github.com/fastygo/pets/usecase"
)

// UseCase maintains the pets context's copy of users.
type UseCase struct {
	users  repository.PetUserRepository
	bus    usecase.EventBus
	logger *zap.Logger
}

func New(users repository.PetUserRepository, bus usecase.EventBus, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{users: users, bus: bus, logger: logger}
}

// Create saves a new pet user and publishes pets.users.created. An id that
// already exists is reported as domain.ErrUserAlreadyExists.
func (uc *UseCase) Create(ctx context.Context, in domain.PetUserPrimitives) error {
	switch _, err := uc.users.FindByID(ctx, in.ID); {
	case err == nil:
		return domain.ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrPetUserNotFound):
		return err
	}

	user, err := domain.CreatePetUser(in)
	if err != nil {
		return err
	}
	if err := uc.users.Save(ctx, user); err != nil {
		return err
	}
	if err := uc.bus.Publish(ctx, user.PullDomainEvents()); err != nil {
		uc.logger.Error("pet user saved but event not published", zap.String("user_id", user.ID()), zap.Error(err))
		return err
	}
	uc.logger.Info("pet user created", zap.String("user_id", user.ID()))
	return nil
}

// OnUserCreated projects user.created deliveries into pet users.
type OnUserCreated struct {
	uc     *UseCase
	logger *zap.Logger
}

func NewOnUserCreated(uc *UseCase, logger *zap.Logger) *OnUserCreated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnUserCreated{uc: uc, logger: logger}
}

var _ usecase.DomainEventListener = (*OnUserCreated)(nil)

// OnEvent ignores nil envelopes, other event names and redeliveries of a
// user that is already known.
func (l *OnUserCreated) OnEvent(ctx context.Context, env *domain.WireEnvelope) error {
	if env == nil || domain.EventName(env.EventName) != domain.EventUserCreated {
		return nil
	}
	body, err := domain.DecodeBody(*env)
	if err != nil {
		return err
	}
	created := body.(domain.UserCreated)

	err = l.uc.Create(ctx, domain.PetUserPrimitives{ID: created.ID, Username: created.Username})
	if errors.Is(err, domain.ErrUserAlreadyExists) {
		l.logger.Info("pet user already exists, skipping", zap.String("user_id", created.ID))
		return nil
	}
	return err
}
