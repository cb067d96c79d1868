package services

import (
	"context"
	"fmt"
	"time"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	"teamstream/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type streamService struct {
	streams  ports.StreamRepository
	teams    ports.TeamRepository
	granter  *StreamGranter
	messager ports.Messager
	logger   *zap.SugaredLogger
}

func NewStreamService(
	streams ports.StreamRepository,
	teams ports.TeamRepository,
	granter *StreamGranter,
	messager ports.Messager,
	log *zap.SugaredLogger,
) ports.StreamService {
	return &streamService{
		streams:  streams,
		teams:    teams,
		granter:  granter,
		messager: messager,
		logger:   log,
	}
}

// CreateStream persists a new stream, then grants its members access to the
// stream channel and announces it on the team channel. File-type streams
// carry no member list; they ride on the team channel.
func (s *streamService) CreateStream(ctx context.Context, stream *domain.Stream) (*domain.Stream, error) {
	if !domain.ValidStreamType(stream.Type) {
		return nil, domain.ErrInvalidStreamType
	}
	if _, err := s.teams.GetByID(ctx, stream.TeamID); err != nil {
		return nil, err
	}

	switch stream.Type {
	case domain.StreamTypeChannel:
		if stream.Name == "" {
			return nil, fmt.Errorf("channel stream requires a name")
		}
		stream.RepoID = ""
		stream.File = ""
	case domain.StreamTypeDirect:
		stream.Name = ""
		stream.RepoID = ""
		stream.File = ""
	case domain.StreamTypeFile:
		if stream.RepoID == "" || stream.File == "" {
			return nil, fmt.Errorf("file stream requires repoId and file")
		}
		stream.Name = ""
		stream.MemberIDs = nil
	}

	if stream.Type != domain.StreamTypeFile {
		// the creator is always a member, even of a stream of one
		stream.EnsureMember(stream.CreatorID)
	}

	stream.ID = domain.StreamID(uuid.NewString())
	stream.NextSeqNum = 1
	stream.CreatedAt = time.Now()

	if err := s.streams.Create(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	log := logger.FromContext(ctx, s.logger)
	if err := s.granter.GrantToMembers(ctx, stream); err != nil {
		log.Warnw("stream grant propagation incomplete", "stream", stream.ID, "error", err)
	}

	if body, err := domain.EntityBody(map[string]interface{}{"stream": stream}); err == nil {
		s.messager.PublishWarn(ctx, body, domain.TeamChannel(stream.TeamID))
	}

	return stream, nil
}

func (s *streamService) GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	return s.streams.GetByID(ctx, id)
}

func (s *streamService) ListStreams(ctx context.Context, teamID domain.TeamID) ([]*domain.Stream, error) {
	return s.streams.ListByTeam(ctx, teamID)
}

// UpdateMembership commits a stream membership change and propagates it:
// grants for added members, revocations for removed ones, and the updated
// stream to the stream channel for everyone still in it.
func (s *streamService) UpdateMembership(ctx context.Context, id domain.StreamID, add, remove []domain.UserID) (*domain.Stream, error) {
	stream, err := s.streams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stream.Type == domain.StreamTypeFile {
		return nil, fmt.Errorf("file streams have no member list: %w", domain.ErrInvalidStreamType)
	}

	before := append([]domain.UserID(nil), stream.MemberIDs...)
	stream.MemberIDs = applyMembershipChange(stream.MemberIDs, add, remove)

	if err := s.streams.Update(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to update stream %s: %w", id, err)
	}

	delta := domain.ComputeMembershipDelta(before, stream.MemberIDs)
	log := logger.FromContext(ctx, s.logger)

	if err := s.granter.Apply(ctx, stream, delta); err != nil {
		log.Warnw("stream grant propagation incomplete", "stream", stream.ID, "error", err)
	}

	if body, err := domain.EntityBody(map[string]interface{}{"stream": stream}); err == nil {
		s.messager.PublishWarn(ctx, body, domain.StreamChannel(stream.ID))
	}

	return stream, nil
}
