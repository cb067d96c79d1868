package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	memoryrepo "teamstream/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type teamServiceFixture struct {
	service   ports.TeamService
	teams     ports.TeamRepository
	users     ports.UserRepository
	grants    *fakeGrantStore
	publisher *fakePublisher
	queue     *fakeQueue
}

func newTeamServiceFixture(t *testing.T, team *domain.Team) *teamServiceFixture {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()

	f := &teamServiceFixture{
		teams:     memoryrepo.NewMemoryTeamRepository(),
		users:     memoryrepo.NewMemoryUserRepository(),
		grants:    newFakeGrantStore(),
		publisher: &fakePublisher{},
		queue:     newFakeQueue(),
	}
	require.NoError(t, f.teams.Save(context.Background(), team))
	for _, id := range team.MemberIDs {
		require.NoError(t, f.users.Save(context.Background(), &domain.User{
			ID:      id,
			TeamIDs: []domain.TeamID{team.ID},
		}))
	}

	messager := NewMessager(f.publisher, nopMetrics{}, time.Second, log)
	granter := NewTeamGranter(f.grants, nopMetrics{}, time.Hour, time.Second, log)
	f.service = NewTeamService(f.teams, f.users, granter, messager, f.queue, log)
	return f
}

// Scenario: adding u3 to a team of [u1, u2] issues exactly one grant, leaves
// the existing members untouched and announces the team once.
func TestTeamUpdateMembershipAdd(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T", MemberIDs: []domain.UserID{"u1", "u2"}})
	channel := domain.TeamChannel("T")

	team, err := f.service.UpdateMembership(context.Background(), "T", []domain.UserID{"u3"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.UserID{"u1", "u2", "u3"}, team.MemberIDs)

	assert.Equal(t, 1, f.grants.grantCount("u3", channel))
	assert.Zero(t, f.grants.grantCount("u1", channel))
	assert.Zero(t, f.grants.grantCount("u2", channel))
	assert.Zero(t, f.grants.revokeCount("u3", channel))

	teamEnvs := f.publisher.toChannel(channel)
	require.Len(t, teamEnvs, 1)
	assert.Equal(t, domain.BodyKindEntity, teamEnvs[0].Payload.Kind)
}

// Scenario: removing u2 revokes their grant, announces the team to the
// remaining members, and sends a $pull directive to u2's personal channel.
func TestTeamUpdateMembershipRemove(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T", MemberIDs: []domain.UserID{"u1", "u2"}})
	channel := domain.TeamChannel("T")
	require.NoError(t, f.grants.Grant(context.Background(), "u2", channel, time.Hour))

	team, err := f.service.UpdateMembership(context.Background(), "T", nil, []domain.UserID{"u2"})
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{"u1"}, team.MemberIDs)

	assert.Equal(t, 1, f.grants.revokeCount("u2", channel))
	assert.False(t, f.grants.hasGrant("u2", channel))

	teamEnvs := f.publisher.toChannel(channel)
	require.Len(t, teamEnvs, 1)

	userEnvs := f.publisher.toChannel(domain.UserChannel("u2"))
	require.Len(t, userEnvs, 1)
	directive := userEnvs[0].Payload.Directive
	require.NotNil(t, directive)
	assert.Equal(t, domain.OpPull, directive.Op)
	assert.Equal(t, "teamIds", directive.Field)
	assert.Equal(t, "u2", directive.ID)
	assert.Equal(t, []string{"T"}, directive.Values)
}

// The membership change lands on the affected user records, not only on the
// team document.
func TestTeamUpdateMembershipSyncsUserRecords(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T", MemberIDs: []domain.UserID{"u1", "u2"}})
	require.NoError(t, f.users.Save(context.Background(), &domain.User{ID: "u3"}))

	_, err := f.service.UpdateMembership(context.Background(), "T", []domain.UserID{"u3"}, []domain.UserID{"u2"})
	require.NoError(t, err)

	added, err := f.users.GetByID(context.Background(), "u3")
	require.NoError(t, err)
	assert.Contains(t, added.TeamIDs, domain.TeamID("T"))

	removed, err := f.users.GetByID(context.Background(), "u2")
	require.NoError(t, err)
	assert.NotContains(t, removed.TeamIDs, domain.TeamID("T"))
}

// A removed user must not regain the team channel by logging in again: login
// renews grants from the user record, which no longer carries the team.
func TestTeamRemovalHoldsAcrossLogin(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T", MemberIDs: []domain.UserID{"u1", "u2"}})
	channel := domain.TeamChannel("T")
	require.NoError(t, f.grants.Grant(context.Background(), "u2", channel, time.Hour))

	_, err := f.service.UpdateMembership(context.Background(), "T", nil, []domain.UserID{"u2"})
	require.NoError(t, err)
	assert.False(t, f.grants.hasGrant("u2", channel))

	log := zaptest.NewLogger(t).Sugar()
	auth := NewAuthService("test-secret", time.Hour)
	sessions := NewSessionService(f.users, f.grants, auth, time.Hour, time.Second, log)

	_, err = sessions.Login(context.Background(), "u2")
	require.NoError(t, err)

	assert.True(t, f.grants.hasGrant("u2", domain.UserChannel("u2")))
	assert.False(t, f.grants.hasGrant("u2", channel))
}

// A grant backend failure must not fail the request; the mutation has
// already committed.
func TestTeamUpdateMembershipSurvivesGrantFailure(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T", MemberIDs: []domain.UserID{"u1"}})
	f.grants.failFor["u2"] = assert.AnError

	team, err := f.service.UpdateMembership(context.Background(), "T", []domain.UserID{"u2"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.UserID{"u1", "u2"}, team.MemberIDs)

	// the committed membership is durable even though the grant failed
	saved, err := f.teams.GetByID(context.Background(), "T")
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.UserID{"u1", "u2"}, saved.MemberIDs)
}

func TestTeamUpdateMembershipEnqueuesFollowUp(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T", MemberIDs: []domain.UserID{"u1"}})

	_, err := f.service.UpdateMembership(context.Background(), "T", []domain.UserID{"u2"}, nil)
	require.NoError(t, err)

	jobs := f.queue.sent("team_membership_changed")
	require.Len(t, jobs, 1)

	var job struct {
		TeamID string   `json:"teamId"`
		Added  []string `json:"added"`
	}
	require.NoError(t, json.Unmarshal(jobs[0], &job))
	assert.Equal(t, "T", job.TeamID)
	assert.Equal(t, []string{"u2"}, job.Added)
}

func TestTeamUpdateMembershipNoDeltaPublishesNoDirectives(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T", MemberIDs: []domain.UserID{"u1"}})

	// adding an existing member is a no-op delta
	_, err := f.service.UpdateMembership(context.Background(), "T", []domain.UserID{"u1"}, nil)
	require.NoError(t, err)

	assert.Zero(t, f.grants.grantCount("u1", domain.TeamChannel("T")))
	assert.Empty(t, f.publisher.toChannel(domain.UserChannel("u1")))
	assert.Empty(t, f.queue.sent("team_membership_changed"))
}

func TestTeamUpdateMembershipUnknownTeam(t *testing.T) {
	f := newTeamServiceFixture(t, &domain.Team{ID: "T"})

	_, err := f.service.UpdateMembership(context.Background(), "missing", []domain.UserID{"u1"}, nil)
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)
}
