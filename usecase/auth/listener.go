package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/pets/domain"
	"github.com/fastygo/pets/usecase"
)

// LogOnUserCreated writes a log line for every user.created delivery.
type LogOnUserCreated struct {
	logger *zap.Logger
}

func NewLogOnUserCreated(logger *zap.Logger) *LogOnUserCreated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogOnUserCreated{logger: logger}
}

var _ usecase.DomainEventListener = (*LogOnUserCreated)(nil)

func (l *LogOnUserCreated) OnEvent(_ context.Context, env *domain.WireEnvelope) error {
	if env == nil || domain.EventName(env.EventName) != domain.EventUserCreated {
		return nil
	}
	body, err := domain.DecodeBody(*env)
	if err != nil {
		return err
	}
	created := body.(domain.UserCreated)
	l.logger.Info("user created",
		zap.String("user_id", created.ID),
		zap.String("username", created.Username),
		zap.String("occurred_on", env.OccurredOn),
	)
	return nil
}
