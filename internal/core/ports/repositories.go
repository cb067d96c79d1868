package ports

import (
	"context"

	"teamstream/internal/core/domain"
)

type TeamRepository interface {
	GetByID(ctx context.Context, id domain.TeamID) (*domain.Team, error)
	Save(ctx context.Context, team *domain.Team) error
}

type StreamRepository interface {
	Create(ctx context.Context, stream *domain.Stream) error
	GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	Update(ctx context.Context, stream *domain.Stream) error
	ListByTeam(ctx context.Context, teamID domain.TeamID) ([]*domain.Stream, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}
