package services

import (
	"context"
	"testing"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	memoryrepo "teamstream/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type streamServiceFixture struct {
	service   ports.StreamService
	grants    *fakeGrantStore
	publisher *fakePublisher
}

func newStreamServiceFixture(t *testing.T) *streamServiceFixture {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()

	teams := memoryrepo.NewMemoryTeamRepository()
	require.NoError(t, teams.Save(context.Background(), &domain.Team{
		ID:        "T",
		MemberIDs: []domain.UserID{"u1", "u2", "u3"},
	}))

	f := &streamServiceFixture{
		grants:    newFakeGrantStore(),
		publisher: &fakePublisher{},
	}
	messager := NewMessager(f.publisher, nopMetrics{}, time.Second, log)
	granter := NewStreamGranter(f.grants, nopMetrics{}, time.Hour, time.Second, log)
	f.service = NewStreamService(memoryrepo.NewMemoryStreamRepository(), teams, granter, messager, log)
	return f
}

func TestCreateChannelStream(t *testing.T) {
	f := newStreamServiceFixture(t)

	stream, err := f.service.CreateStream(context.Background(), &domain.Stream{
		TeamID:    "T",
		Type:      domain.StreamTypeChannel,
		Name:      "general",
		MemberIDs: []domain.UserID{"u2"},
		CreatorID: "u1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, stream.ID)
	assert.Equal(t, 1, stream.NextSeqNum)

	// the creator is always a member, and the list stays sorted
	assert.Equal(t, []domain.UserID{"u1", "u2"}, stream.MemberIDs)

	channel := domain.StreamChannel(stream.ID)
	assert.True(t, f.grants.hasGrant("u1", channel))
	assert.True(t, f.grants.hasGrant("u2", channel))

	// creation is announced on the team channel
	require.Len(t, f.publisher.toChannel(domain.TeamChannel("T")), 1)
}

func TestCreateDirectStreamOfOne(t *testing.T) {
	f := newStreamServiceFixture(t)

	stream, err := f.service.CreateStream(context.Background(), &domain.Stream{
		TeamID:    "T",
		Type:      domain.StreamTypeDirect,
		CreatorID: "u1",
	})
	require.NoError(t, err)

	// a direct stream of one still grants the creator
	assert.Equal(t, []domain.UserID{"u1"}, stream.MemberIDs)
	assert.True(t, f.grants.hasGrant("u1", domain.StreamChannel(stream.ID)))
}

func TestCreateFileStreamSkipsGrants(t *testing.T) {
	f := newStreamServiceFixture(t)

	stream, err := f.service.CreateStream(context.Background(), &domain.Stream{
		TeamID:    "T",
		Type:      domain.StreamTypeFile,
		RepoID:    "repo1",
		File:      "main.go",
		MemberIDs: []domain.UserID{"u1", "u2"},
		CreatorID: "u1",
	})
	require.NoError(t, err)

	// file streams have no member list; the team channel covers them
	assert.Empty(t, stream.MemberIDs)
	assert.False(t, f.grants.hasGrant("u1", domain.StreamChannel(stream.ID)))
	assert.False(t, f.grants.hasGrant("u2", domain.StreamChannel(stream.ID)))

	require.Len(t, f.publisher.toChannel(domain.TeamChannel("T")), 1)
}

func TestCreateStreamValidation(t *testing.T) {
	f := newStreamServiceFixture(t)

	tests := []struct {
		name   string
		stream *domain.Stream
	}{
		{"unknown type", &domain.Stream{TeamID: "T", Type: "mystery", CreatorID: "u1"}},
		{"channel without name", &domain.Stream{TeamID: "T", Type: domain.StreamTypeChannel, CreatorID: "u1"}},
		{"file without repo", &domain.Stream{TeamID: "T", Type: domain.StreamTypeFile, File: "main.go", CreatorID: "u1"}},
		{"file without file", &domain.Stream{TeamID: "T", Type: domain.StreamTypeFile, RepoID: "repo1", CreatorID: "u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateStream(context.Background(), tt.stream)
			assert.Error(t, err)
		})
	}
}

func TestCreateStreamUnknownTeam(t *testing.T) {
	f := newStreamServiceFixture(t)

	_, err := f.service.CreateStream(context.Background(), &domain.Stream{
		TeamID:    "missing",
		Type:      domain.StreamTypeDirect,
		CreatorID: "u1",
	})
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)
}

func TestStreamUpdateMembership(t *testing.T) {
	f := newStreamServiceFixture(t)

	stream, err := f.service.CreateStream(context.Background(), &domain.Stream{
		TeamID:    "T",
		Type:      domain.StreamTypeChannel,
		Name:      "general",
		MemberIDs: []domain.UserID{"u2"},
		CreatorID: "u1",
	})
	require.NoError(t, err)
	channel := domain.StreamChannel(stream.ID)

	updated, err := f.service.UpdateMembership(context.Background(), stream.ID,
		[]domain.UserID{"u3"}, []domain.UserID{"u2"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.UserID{"u1", "u3"}, updated.MemberIDs)

	assert.True(t, f.grants.hasGrant("u3", channel))
	assert.False(t, f.grants.hasGrant("u2", channel))

	// the updated stream goes to the stream channel for remaining members
	require.Len(t, f.publisher.toChannel(channel), 1)
}

func TestStreamUpdateMembershipRejectsFileStreams(t *testing.T) {
	f := newStreamServiceFixture(t)

	stream, err := f.service.CreateStream(context.Background(), &domain.Stream{
		TeamID:    "T",
		Type:      domain.StreamTypeFile,
		RepoID:    "repo1",
		File:      "main.go",
		CreatorID: "u1",
	})
	require.NoError(t, err)

	_, err = f.service.UpdateMembership(context.Background(), stream.ID, []domain.UserID{"u2"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidStreamType)
}
