package services

import (
	"context"
	"sync"
	"time"

	"teamstream/internal/core/domain"
)

// fakeGrantStore records grant/revoke calls and can be told to fail for
// specific principals.
type fakeGrantStore struct {
	mu          sync.Mutex
	granted     map[string]bool // principal|channel
	grantCalls  map[string]int
	revokeCalls map[string]int
	failFor     map[domain.UserID]error
}

func newFakeGrantStore() *fakeGrantStore {
	return &fakeGrantStore{
		granted:     make(map[string]bool),
		grantCalls:  make(map[string]int),
		revokeCalls: make(map[string]int),
		failFor:     make(map[domain.UserID]error),
	}
}

func key(principal domain.UserID, channel domain.Channel) string {
	return string(principal) + "|" + channel.String()
}

func (f *fakeGrantStore) Grant(_ context.Context, principal domain.UserID, channel domain.Channel, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grantCalls[key(principal, channel)]++
	if err := f.failFor[principal]; err != nil {
		return err
	}
	f.granted[key(principal, channel)] = true
	return nil
}

func (f *fakeGrantStore) Revoke(_ context.Context, principal domain.UserID, channel domain.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokeCalls[key(principal, channel)]++
	if err := f.failFor[principal]; err != nil {
		return err
	}
	delete(f.granted, key(principal, channel))
	return nil
}

func (f *fakeGrantStore) Has(_ context.Context, principal domain.UserID, channel domain.Channel) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted[key(principal, channel)], nil
}

func (f *fakeGrantStore) hasGrant(principal domain.UserID, channel domain.Channel) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.granted[key(principal, channel)]
}

func (f *fakeGrantStore) grantCount(principal domain.UserID, channel domain.Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grantCalls[key(principal, channel)]
}

func (f *fakeGrantStore) revokeCount(principal domain.UserID, channel domain.Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revokeCalls[key(principal, channel)]
}

// fakePublisher records every envelope it sees.
type fakePublisher struct {
	mu        sync.Mutex
	envelopes []*domain.Envelope
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, env *domain.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.envelopes = append(f.envelopes, env)
	return nil
}

func (f *fakePublisher) published() []*domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Envelope(nil), f.envelopes...)
}

// toChannel returns the envelopes published to one channel.
func (f *fakePublisher) toChannel(channel domain.Channel) []*domain.Envelope {
	var out []*domain.Envelope
	for _, env := range f.published() {
		if env.Channel == channel.String() {
			out = append(out, env)
		}
	}
	return out
}

// nopMetrics satisfies ports.MetricsRecorder for tests.
type nopMetrics struct{}

func (nopMetrics) GrantIssued()             {}
func (nopMetrics) GrantFailed()             {}
func (nopMetrics) RevokeIssued()            {}
func (nopMetrics) RevokeFailed()            {}
func (nopMetrics) MessagePublished(string)  {}
func (nopMetrics) PublishFailed(string)     {}
func (nopMetrics) QueueSent()               {}
func (nopMetrics) QueueFailed()             {}

// fakeQueue records sends.
type fakeQueue struct {
	mu    sync.Mutex
	sends map[string][][]byte
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{sends: make(map[string][][]byte)}
}

func (f *fakeQueue) Send(_ context.Context, queue string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends[queue] = append(f.sends[queue], body)
	return nil
}

func (f *fakeQueue) Close() error { return nil }

func (f *fakeQueue) sent(queue string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends[queue]
}
