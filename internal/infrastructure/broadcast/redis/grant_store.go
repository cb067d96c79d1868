package redis

import (
	"context"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	"teamstream/pkg/circuitbreaker"
	"teamstream/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// GrantStore keeps grants as TTL'd Redis keys. Redis is the sole store of
// record; the API server issues commands and caches nothing.
//
// Grant is SET with expiry, so re-granting an existing pair extends the TTL.
// Revoke is DEL, so revoking a non-granted pair is a no-op. Both are
// idempotent; concurrent mutations of the same pair resolve last-writer-wins.
type GrantStore struct {
	client  *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	prefix  string
	logger  *zap.SugaredLogger
}

func NewGrantStore(client *redis.Client, breaker *circuitbreaker.CircuitBreaker, logger *zap.SugaredLogger) ports.GrantStore {
	return &GrantStore{
		client:  client,
		breaker: breaker,
		prefix:  "teamstream:grant:",
		logger:  logger,
	}
}

func (s *GrantStore) grantKey(channel domain.Channel, principal domain.UserID) string {
	return s.prefix + channel.String() + ":" + string(principal)
}

func (s *GrantStore) Grant(ctx context.Context, principal domain.UserID, channel domain.Channel, ttl time.Duration) error {
	key := s.grantKey(channel, principal)
	err := s.breaker.Execute(ctx, func() error {
		return s.client.Set(ctx, key, "1", ttl).Err()
	})
	if err != nil {
		return errors.NewGrantError("grant "+string(principal)+" -> "+channel.String(), err)
	}

	s.logger.Debugw("granted channel access",
		"principal", principal,
		"channel", channel,
		"ttl", ttl,
	)
	return nil
}

func (s *GrantStore) Revoke(ctx context.Context, principal domain.UserID, channel domain.Channel) error {
	key := s.grantKey(channel, principal)
	err := s.breaker.Execute(ctx, func() error {
		return s.client.Del(ctx, key).Err()
	})
	if err != nil {
		return errors.NewGrantError("revoke "+string(principal)+" -> "+channel.String(), err)
	}

	s.logger.Debugw("revoked channel access",
		"principal", principal,
		"channel", channel,
	)
	return nil
}

func (s *GrantStore) Has(ctx context.Context, principal domain.UserID, channel domain.Channel) (bool, error) {
	key := s.grantKey(channel, principal)
	var n int64
	err := s.breaker.Execute(ctx, func() error {
		var execErr error
		n, execErr = s.client.Exists(ctx, key).Result()
		return execErr
	})
	if err != nil {
		return false, errors.NewGrantError("grant lookup for "+string(principal), err)
	}
	return n > 0, nil
}
