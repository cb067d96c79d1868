package ports

import (
	"context"
	"time"

	"teamstream/internal/core/domain"
)

// GrantStore is the pub/sub backend's access-control primitive. The backend
// is the sole store of record for grants; the API server issues commands and
// keeps no local grant state.
type GrantStore interface {
	// Grant allows the principal to subscribe to the channel for ttl.
	// Granting an already-granted pair extends the TTL; it never errors for
	// "already granted".
	Grant(ctx context.Context, principal domain.UserID, channel domain.Channel, ttl time.Duration) error

	// Revoke removes the principal's access to the channel. Revoking a
	// non-granted pair is not an error.
	Revoke(ctx context.Context, principal domain.UserID, channel domain.Channel) error

	// Has reports whether the principal currently holds a grant to the
	// channel. Used by the broadcaster to authorize subscribe requests.
	Has(ctx context.Context, principal domain.UserID, channel domain.Channel) (bool, error)
}

// Publisher delivers an envelope to everyone subscribed to its channel.
// Publishing to a channel with zero subscribers is a harmless no-op.
type Publisher interface {
	Publish(ctx context.Context, envelope *domain.Envelope) error
}
