package queue

import (
	"context"
	"fmt"
	"sync"

	"teamstream/internal/core/ports"
	"teamstream/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// SQSQueue is the AWS SQS work-queue client. Queue URLs are resolved once
// and cached.
type SQSQueue struct {
	client  *sqs.Client
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger

	mu   sync.Mutex
	urls map[string]string
}

func NewSQSQueue(ctx context.Context, region string, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) (*SQSQueue, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Infow("SQS queue client initialized", "region", region)

	return &SQSQueue{
		client:  sqs.NewFromConfig(cfg),
		metrics: metrics,
		logger:  logger,
		urls:    make(map[string]string),
	}, nil
}

func (q *SQSQueue) Send(ctx context.Context, queue string, body []byte) error {
	url, err := q.queueURL(ctx, queue)
	if err != nil {
		q.metrics.QueueFailed()
		return errors.NewQueueError("resolve queue "+queue, err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.metrics.QueueFailed()
		return errors.NewQueueError("send to queue "+queue, err)
	}

	q.metrics.QueueSent()
	return nil
}

func (q *SQSQueue) queueURL(ctx context.Context, name string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if url, ok := q.urls[name]; ok {
		return url, nil
	}

	out, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return "", err
	}

	q.urls[name] = *out.QueueUrl
	return *out.QueueUrl, nil
}

func (q *SQSQueue) Close() error {
	return nil
}
