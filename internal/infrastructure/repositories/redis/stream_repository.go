package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisStreamRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisStreamRepository(client *redis.Client) ports.StreamRepository {
	return &RedisStreamRepository{
		client: client,
		prefix: "teamstream:stream:",
	}
}

func (r *RedisStreamRepository) streamKey(id domain.StreamID) string {
	return r.prefix + string(id)
}

func (r *RedisStreamRepository) teamIndexKey(id domain.TeamID) string {
	return r.prefix + "by-team:" + string(id)
}

func (r *RedisStreamRepository) Create(ctx context.Context, stream *domain.Stream) error {
	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %w", err)
	}

	key := r.streamKey(stream.ID)
	ok, err := r.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set stream in Redis: %w", err)
	}
	if !ok {
		return domain.ErrStreamExists
	}

	if err := r.client.SAdd(ctx, r.teamIndexKey(stream.TeamID), string(stream.ID)).Err(); err != nil {
		return fmt.Errorf("failed to index stream by team: %w", err)
	}
	return nil
}

func (r *RedisStreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	data, err := r.client.Get(ctx, r.streamKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stream from Redis: %w", err)
	}

	var stream domain.Stream
	if err := json.Unmarshal([]byte(data), &stream); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream: %w", err)
	}
	return &stream, nil
}

func (r *RedisStreamRepository) Update(ctx context.Context, stream *domain.Stream) error {
	if _, err := r.GetByID(ctx, stream.ID); err != nil {
		return err
	}

	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %w", err)
	}
	if err := r.client.Set(ctx, r.streamKey(stream.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update stream in Redis: %w", err)
	}
	return nil
}

func (r *RedisStreamRepository) ListByTeam(ctx context.Context, teamID domain.TeamID) ([]*domain.Stream, error) {
	ids, err := r.client.SMembers(ctx, r.teamIndexKey(teamID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list streams for team: %w", err)
	}

	streams := make([]*domain.Stream, 0, len(ids))
	for _, id := range ids {
		stream, err := r.GetByID(ctx, domain.StreamID(id))
		if err == domain.ErrStreamNotFound {
			continue // index entry outlived the stream
		}
		if err != nil {
			return nil, err
		}
		streams = append(streams, stream)
	}
	return streams, nil
}
