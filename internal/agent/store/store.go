package store

import (
	"time"

	"teamstream/internal/core/domain"
	"teamstream/pkg/cache"
)

// StreamStore is the agent's local resolve sink. Incoming summaries merge
// with what is already cached; a merge never erases a field the cache
// already knows (a summary-only record must not blank out fetched detail).
type StreamStore struct {
	cache *cache.Cache
}

func New(ttl time.Duration) *StreamStore {
	return &StreamStore{cache: cache.New(ttl)}
}

// Resolve merges the given summaries into the store and returns the
// canonicalized records.
func (s *StreamStore) Resolve(summaries []domain.StreamSummary) []domain.StreamSummary {
	merged := make([]domain.StreamSummary, 0, len(summaries))
	for _, incoming := range summaries {
		merged = append(merged, s.merge(incoming))
	}
	return merged
}

func (s *StreamStore) merge(incoming domain.StreamSummary) domain.StreamSummary {
	existing, ok := s.get(incoming.ID)
	if !ok {
		s.cache.Set(string(incoming.ID), incoming)
		return incoming
	}

	if incoming.Name == "" {
		incoming.Name = existing.Name
	}
	if incoming.Type == "" {
		incoming.Type = existing.Type
	}
	if incoming.Priority == nil {
		incoming.Priority = existing.Priority
	}

	s.cache.Set(string(incoming.ID), incoming)
	return incoming
}

// Get returns the cached record for a stream, if present.
func (s *StreamStore) Get(id domain.StreamID) (domain.StreamSummary, bool) {
	return s.get(id)
}

func (s *StreamStore) get(id domain.StreamID) (domain.StreamSummary, bool) {
	v, ok := s.cache.Get(string(id))
	if !ok {
		return domain.StreamSummary{}, false
	}
	summary, ok := v.(domain.StreamSummary)
	return summary, ok
}

// Len returns the number of cached streams.
func (s *StreamStore) Len() int {
	return s.cache.Len()
}

// Close stops the cache's cleanup goroutine.
func (s *StreamStore) Close() {
	s.cache.Stop()
}
