package ports

// MetricsRecorder receives messaging-layer counters. Implemented by the
// prometheus collector; a no-op implementation is used in tests.
type MetricsRecorder interface {
	GrantIssued()
	GrantFailed()
	RevokeIssued()
	RevokeFailed()
	MessagePublished(channelKind string)
	PublishFailed(channelKind string)
	QueueSent()
	QueueFailed()
}
