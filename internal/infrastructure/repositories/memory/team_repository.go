package memory

import (
	"context"
	"sync"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
)

type MemoryTeamRepository struct {
	mu    sync.RWMutex
	teams map[domain.TeamID]*domain.Team
}

func NewMemoryTeamRepository() ports.TeamRepository {
	return &MemoryTeamRepository{
		teams: make(map[domain.TeamID]*domain.Team),
	}
}

func (r *MemoryTeamRepository) GetByID(_ context.Context, id domain.TeamID) (*domain.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	team, ok := r.teams[id]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	copied := *team
	copied.MemberIDs = append([]domain.UserID(nil), team.MemberIDs...)
	return &copied, nil
}

func (r *MemoryTeamRepository) Save(_ context.Context, team *domain.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *team
	copied.MemberIDs = append([]domain.UserID(nil), team.MemberIDs...)
	r.teams[team.ID] = &copied
	return nil
}
