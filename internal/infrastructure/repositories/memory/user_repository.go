package memory

import (
	"context"
	"sync"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
)

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[domain.UserID]*domain.User
}

func NewMemoryUserRepository() ports.UserRepository {
	return &MemoryUserRepository{
		users: make(map[domain.UserID]*domain.User),
	}
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	copied.TeamIDs = append([]domain.TeamID(nil), user.TeamIDs...)
	return &copied, nil
}

func (r *MemoryUserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *user
	copied.TeamIDs = append([]domain.TeamID(nil), user.TeamIDs...)
	r.users[user.ID] = &copied
	return nil
}
