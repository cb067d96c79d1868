package memory

import (
	"context"
	"sync"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
)

type MemoryStreamRepository struct {
	mu      sync.RWMutex
	streams map[domain.StreamID]*domain.Stream
}

func NewMemoryStreamRepository() ports.StreamRepository {
	return &MemoryStreamRepository{
		streams: make(map[domain.StreamID]*domain.Stream),
	}
}

func copyStream(s *domain.Stream) *domain.Stream {
	copied := *s
	copied.MemberIDs = append([]domain.UserID(nil), s.MemberIDs...)
	return &copied
}

func (r *MemoryStreamRepository) Create(_ context.Context, stream *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.streams[stream.ID]; ok {
		return domain.ErrStreamExists
	}
	r.streams[stream.ID] = copyStream(stream)
	return nil
}

func (r *MemoryStreamRepository) GetByID(_ context.Context, id domain.StreamID) (*domain.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stream, ok := r.streams[id]
	if !ok {
		return nil, domain.ErrStreamNotFound
	}
	return copyStream(stream), nil
}

func (r *MemoryStreamRepository) Update(_ context.Context, stream *domain.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.streams[stream.ID]; !ok {
		return domain.ErrStreamNotFound
	}
	r.streams[stream.ID] = copyStream(stream)
	return nil
}

func (r *MemoryStreamRepository) ListByTeam(_ context.Context, teamID domain.TeamID) ([]*domain.Stream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var streams []*domain.Stream
	for _, stream := range r.streams {
		if stream.TeamID == teamID {
			streams = append(streams, copyStream(stream))
		}
	}
	return streams, nil
}
