package services

import (
	"context"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	"teamstream/pkg/errors"
	"teamstream/pkg/logger"

	"go.uber.org/zap"
)

type messager struct {
	publisher ports.Publisher
	metrics   ports.MetricsRecorder
	timeout   time.Duration
	logger    *zap.SugaredLogger
}

// NewMessager creates the messager service. Publishing is best-effort: it is
// invoked after the mutation has committed, so failures are surfaced to the
// caller as a result it may ignore, never as a request failure.
func NewMessager(
	publisher ports.Publisher,
	metrics ports.MetricsRecorder,
	timeout time.Duration,
	log *zap.SugaredLogger,
) ports.Messager {
	return &messager{
		publisher: publisher,
		metrics:   metrics,
		timeout:   timeout,
		logger:    log,
	}
}

func (m *messager) Publish(ctx context.Context, body domain.MessageBody, channel domain.Channel) error {
	envelope := &domain.Envelope{
		Payload:   body,
		Channel:   channel.String(),
		RequestID: logger.RequestIDFrom(ctx),
	}
	if err := envelope.Validate(); err != nil {
		m.metrics.PublishFailed(string(channel.Kind()))
		return errors.NewPublishError("invalid envelope", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.publisher.Publish(ctx, envelope); err != nil {
		m.metrics.PublishFailed(string(channel.Kind()))
		return errors.NewPublishError("publish to "+channel.String()+" failed", err)
	}

	m.metrics.MessagePublished(string(channel.Kind()))
	m.logger.Debugw("published message",
		"channel", channel,
		"kind", body.Kind,
		"request_id", envelope.RequestID,
	)
	return nil
}

func (m *messager) PublishWarn(ctx context.Context, body domain.MessageBody, channel domain.Channel) {
	if err := m.Publish(ctx, body, channel); err != nil {
		logger.FromContext(ctx, m.logger).Warnw("could not publish message",
			"channel", channel,
			"error", err,
		)
	}
}
