package services

import (
	"context"
	"sync"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	"teamstream/pkg/errors"

	"go.uber.org/zap"
)

// granterCore holds the grant/revoke fan-out shared by the team and stream
// granters. Calls for different principals are independent and run
// concurrently; the fan-out waits for all of them to settle and reports the
// failures in aggregate. It is deliberately not transactional: one bad entry
// in a 500-user member list must not block the rest.
type granterCore struct {
	grants  ports.GrantStore
	metrics ports.MetricsRecorder
	ttl     time.Duration
	timeout time.Duration
	logger  *zap.SugaredLogger
}

func (g *granterCore) apply(ctx context.Context, channel domain.Channel, delta domain.MembershipDelta) error {
	agg := &errors.Aggregate{Op: "grant update for " + channel.String()}

	var wg sync.WaitGroup
	var mu sync.Mutex

	record := func(principal domain.UserID, err error) {
		mu.Lock()
		agg.Failures = append(agg.Failures, errors.PrincipalFailure{
			Principal: string(principal),
			Err:       err,
		})
		mu.Unlock()
	}

	for _, user := range delta.Added {
		wg.Add(1)
		go func(user domain.UserID) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			if err := g.grants.Grant(cctx, user, channel, g.ttl); err != nil {
				g.metrics.GrantFailed()
				record(user, err)
				return
			}
			g.metrics.GrantIssued()
		}(user)
	}

	for _, user := range delta.Removed {
		wg.Add(1)
		go func(user domain.UserID) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			if err := g.grants.Revoke(cctx, user, channel); err != nil {
				g.metrics.RevokeFailed()
				record(user, err)
				return
			}
			g.metrics.RevokeIssued()
		}(user)
	}

	wg.Wait()

	if agg.Len() > 0 {
		g.logger.Warnw("grant fan-out completed with failures",
			"channel", channel,
			"added", len(delta.Added),
			"removed", len(delta.Removed),
			"failed", agg.Len(),
		)
	}
	return agg.OrNil()
}

// TeamGranter propagates team membership changes to the team channel's
// grants.
type TeamGranter struct {
	core granterCore
}

func NewTeamGranter(
	grants ports.GrantStore,
	metrics ports.MetricsRecorder,
	grantTTL, grantTimeout time.Duration,
	log *zap.SugaredLogger,
) *TeamGranter {
	return &TeamGranter{core: granterCore{
		grants:  grants,
		metrics: metrics,
		ttl:     grantTTL,
		timeout: grantTimeout,
		logger:  log,
	}}
}

// Apply translates a team membership delta into the minimal set of grant and
// revoke calls against the team channel.
func (g *TeamGranter) Apply(ctx context.Context, team *domain.Team, delta domain.MembershipDelta) error {
	if delta.IsEmpty() {
		return nil
	}
	return g.core.apply(ctx, domain.TeamChannel(team.ID), delta)
}

// GrantAll grants the team channel to every current member, used on team
// creation and full re-grants.
func (g *TeamGranter) GrantAll(ctx context.Context, team *domain.Team) error {
	return g.core.apply(ctx, domain.TeamChannel(team.ID), domain.MembershipDelta{Added: team.MemberIDs})
}

// StreamGranter propagates stream membership changes to the stream channel's
// grants.
type StreamGranter struct {
	core granterCore
}

func NewStreamGranter(
	grants ports.GrantStore,
	metrics ports.MetricsRecorder,
	grantTTL, grantTimeout time.Duration,
	log *zap.SugaredLogger,
) *StreamGranter {
	return &StreamGranter{core: granterCore{
		grants:  grants,
		metrics: metrics,
		ttl:     grantTTL,
		timeout: grantTimeout,
		logger:  log,
	}}
}

// Apply translates a stream membership delta into grant/revoke calls against
// the stream channel. File-type streams have no per-member grants; every
// team member already holds a grant to the team channel.
func (g *StreamGranter) Apply(ctx context.Context, stream *domain.Stream, delta domain.MembershipDelta) error {
	if stream.Type == domain.StreamTypeFile || delta.IsEmpty() {
		return nil
	}
	return g.core.apply(ctx, domain.StreamChannel(stream.ID), delta)
}

// GrantToMembers grants the stream channel to every current member, used
// after stream creation. A stream created with only its creator still gets a
// grant for the creator.
func (g *StreamGranter) GrantToMembers(ctx context.Context, stream *domain.Stream) error {
	if stream.Type == domain.StreamTypeFile {
		return nil
	}
	return g.core.apply(ctx, domain.StreamChannel(stream.ID), domain.MembershipDelta{Added: stream.MemberIDs})
}
