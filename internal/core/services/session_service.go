package services

import (
	"context"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	"teamstream/pkg/logger"

	"go.uber.org/zap"
)

type sessionService struct {
	users    ports.UserRepository
	grants   ports.GrantStore
	auth     ports.AuthService
	grantTTL time.Duration
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

// NewSessionService creates the login service. Each login renews the user's
// channel grants; grants not renewed expire passively via their TTL.
func NewSessionService(
	users ports.UserRepository,
	grants ports.GrantStore,
	auth ports.AuthService,
	grantTTL, grantTimeout time.Duration,
	log *zap.SugaredLogger,
) ports.SessionService {
	return &sessionService{
		users:    users,
		grants:   grants,
		auth:     auth,
		grantTTL: grantTTL,
		timeout:  grantTimeout,
		logger:   log,
	}
}

func (s *sessionService) Login(ctx context.Context, userID domain.UserID) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	token, err := s.auth.GenerateToken(user.ID)
	if err != nil {
		return "", err
	}

	// renewal failures are logged only; the client can still poll
	log := logger.FromContext(ctx, s.logger)
	s.renew(ctx, log, user.ID, domain.UserChannel(user.ID))
	for _, teamID := range user.TeamIDs {
		s.renew(ctx, log, user.ID, domain.TeamChannel(teamID))
	}

	return token, nil
}

func (s *sessionService) renew(ctx context.Context, log *zap.SugaredLogger, userID domain.UserID, channel domain.Channel) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.grants.Grant(cctx, userID, channel, s.grantTTL); err != nil {
		log.Warnw("could not renew grant on login",
			"user", userID,
			"channel", channel,
			"error", err,
		)
	}
}
