package queue

import (
	"context"
	"fmt"

	"teamstream/internal/core/ports"
	"teamstream/pkg/config"

	"go.uber.org/zap"
)

// New builds the configured work-queue client. An empty queue.service means
// no queue: callers get nil and skip follow-up work.
func New(ctx context.Context, cfg *config.Config, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) (ports.Queue, error) {
	switch cfg.Queue.Service {
	case "":
		return nil, nil
	case "rabbitmq":
		return NewRabbitMQQueue(ctx, cfg.Queue.RabbitMQ.URL, metrics, logger)
	case "sqs":
		return NewSQSQueue(ctx, cfg.Queue.SQS.Region, metrics, logger)
	default:
		return nil, fmt.Errorf("unknown queue service: %q", cfg.Queue.Service)
	}
}
