package ports

import (
	"context"

	"teamstream/internal/core/domain"
)

// Messager publishes message envelopes after a mutation commits. Delivery is
// best-effort: Publish returns a result the caller may choose to ignore, and
// PublishWarn logs and swallows it. A missed real-time notification is
// recoverable via the next poll; a 500 after a committed mutation is not.
type Messager interface {
	Publish(ctx context.Context, body domain.MessageBody, channel domain.Channel) error
	PublishWarn(ctx context.Context, body domain.MessageBody, channel domain.Channel)
}

// TeamService owns team mutations and their messaging side effects.
type TeamService interface {
	GetTeam(ctx context.Context, id domain.TeamID) (*domain.Team, error)
	// UpdateMembership applies added/removed member sets, then propagates
	// grants and publishes the update. Messaging failures are logged, never
	// returned; the mutation has already committed.
	UpdateMembership(ctx context.Context, id domain.TeamID, add, remove []domain.UserID) (*domain.Team, error)
}

// StreamService owns stream creation and membership updates.
type StreamService interface {
	CreateStream(ctx context.Context, stream *domain.Stream) (*domain.Stream, error)
	GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	UpdateMembership(ctx context.Context, id domain.StreamID, add, remove []domain.UserID) (*domain.Stream, error)
	ListStreams(ctx context.Context, teamID domain.TeamID) ([]*domain.Stream, error)
}

// AuthService issues and validates the connection tokens presented to the
// API and the broadcaster.
type AuthService interface {
	GenerateToken(userID domain.UserID) (string, error)
	ValidateToken(token string) (domain.UserID, error)
}

// SessionService renews a user's grants on login.
type SessionService interface {
	Login(ctx context.Context, userID domain.UserID) (string, error)
}
