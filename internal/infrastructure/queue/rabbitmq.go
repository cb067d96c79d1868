package queue

import (
	"context"
	"fmt"
	"sync"

	"teamstream/internal/core/ports"
	"teamstream/pkg/errors"
	"teamstream/pkg/retry"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitMQQueue is the RabbitMQ work-queue client. Queues are declared
// durable on first use.
type RabbitMQQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQQueue dials the broker, retrying with backoff so a broker that
// is still starting does not fail the whole process.
func NewRabbitMQQueue(ctx context.Context, url string, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) (*RabbitMQQueue, error) {
	var conn *amqp.Connection
	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		var dialErr error
		conn, dialErr = amqp.Dial(url)
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	logger.Infow("connected to RabbitMQ")

	return &RabbitMQQueue{
		conn:     conn,
		channel:  channel,
		metrics:  metrics,
		logger:   logger,
		declared: make(map[string]bool),
	}, nil
}

func (q *RabbitMQQueue) Send(ctx context.Context, queue string, body []byte) error {
	if err := q.ensureQueue(queue); err != nil {
		q.metrics.QueueFailed()
		return errors.NewQueueError("declare queue "+queue, err)
	}

	err := q.channel.Publish(
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		q.metrics.QueueFailed()
		return errors.NewQueueError("publish to queue "+queue, err)
	}

	q.metrics.QueueSent()
	return nil
}

func (q *RabbitMQQueue) ensureQueue(name string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.declared[name] {
		return nil
	}
	// QueueDeclare: name, durable, autoDelete, exclusive, noWait, args
	if _, err := q.channel.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return err
	}
	q.declared[name] = true
	return nil
}

func (q *RabbitMQQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
