package ports

import "context"

// Queue is a durable work-queue client for asynchronous follow-up work
// (notification fan-out and the like). It is not part of the real-time
// messaging path but shares the external-broker shape.
type Queue interface {
	Send(ctx context.Context, queue string, body []byte) error
	Close() error
}
