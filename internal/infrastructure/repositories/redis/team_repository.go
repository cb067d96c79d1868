package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisTeamRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisTeamRepository(client *redis.Client) ports.TeamRepository {
	return &RedisTeamRepository{
		client: client,
		prefix: "teamstream:team:",
	}
}

func (r *RedisTeamRepository) teamKey(id domain.TeamID) string {
	return r.prefix + string(id)
}

func (r *RedisTeamRepository) GetByID(ctx context.Context, id domain.TeamID) (*domain.Team, error) {
	data, err := r.client.Get(ctx, r.teamKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team from Redis: %w", err)
	}

	var team domain.Team
	if err := json.Unmarshal([]byte(data), &team); err != nil {
		return nil, fmt.Errorf("failed to unmarshal team: %w", err)
	}
	return &team, nil
}

func (r *RedisTeamRepository) Save(ctx context.Context, team *domain.Team) error {
	data, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("failed to marshal team: %w", err)
	}

	if err := r.client.Set(ctx, r.teamKey(team.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set team in Redis: %w", err)
	}
	return nil
}
