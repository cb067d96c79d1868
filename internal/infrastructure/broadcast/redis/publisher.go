package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// channelPrefix namespaces our pub/sub topics within a shared Redis.
const channelPrefix = "teamstream:channel:"

// PubSubName maps a domain channel to its Redis pub/sub topic.
func PubSubName(channel string) string {
	return channelPrefix + channel
}

// Publisher delivers envelopes over Redis pub/sub. Publishing to a channel
// with no subscribers is a harmless no-op.
type Publisher struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func NewPublisher(client *redis.Client, logger *zap.SugaredLogger) ports.Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, envelope *domain.Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := p.client.Publish(ctx, PubSubName(envelope.Channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", envelope.Channel, err)
	}

	return nil
}
