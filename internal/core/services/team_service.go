package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"teamstream/internal/core/domain"
	"teamstream/internal/core/ports"
	"teamstream/pkg/logger"

	"go.uber.org/zap"
)

type teamService struct {
	teams    ports.TeamRepository
	users    ports.UserRepository
	granter  *TeamGranter
	messager ports.Messager
	queue    ports.Queue
	logger   *zap.SugaredLogger
}

// NewTeamService creates the team service. queue may be nil when no work
// queue is configured.
func NewTeamService(
	teams ports.TeamRepository,
	users ports.UserRepository,
	granter *TeamGranter,
	messager ports.Messager,
	queue ports.Queue,
	log *zap.SugaredLogger,
) ports.TeamService {
	return &teamService{
		teams:    teams,
		users:    users,
		granter:  granter,
		messager: messager,
		queue:    queue,
		logger:   log,
	}
}

func (s *teamService) GetTeam(ctx context.Context, id domain.TeamID) (*domain.Team, error) {
	return s.teams.GetByID(ctx, id)
}

// UpdateMembership commits the membership change, then runs the messaging
// side effects: grant/revoke propagation, the team update to the team
// channel, and a removal directive to each removed user's personal channel.
// Side-effect failures are logged, never returned; the resource mutation has
// already committed and an HTTP 500 at this point would lie to the caller.
func (s *teamService) UpdateMembership(ctx context.Context, id domain.TeamID, add, remove []domain.UserID) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := append([]domain.UserID(nil), team.MemberIDs...)
	team.MemberIDs = applyMembershipChange(team.MemberIDs, add, remove)

	if err := s.teams.Save(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to save team %s: %w", id, err)
	}

	delta := domain.ComputeMembershipDelta(before, team.MemberIDs)
	s.syncUserTeams(ctx, team.ID, delta)
	s.postProcess(ctx, team, delta)

	return team, nil
}

// syncUserTeams mirrors the committed change into each affected user record.
// The login renewal path re-grants from User.TeamIDs, so a removed user must
// lose the team here and not only via the client-side directive.
func (s *teamService) syncUserTeams(ctx context.Context, teamID domain.TeamID, delta domain.MembershipDelta) {
	log := logger.FromContext(ctx, s.logger)
	for _, userID := range delta.Added {
		if err := s.addUserTeam(ctx, userID, teamID); err != nil {
			log.Warnw("could not record team on user", "user", userID, "team", teamID, "error", err)
		}
	}
	for _, userID := range delta.Removed {
		if err := s.removeUserTeam(ctx, userID, teamID); err != nil {
			log.Warnw("could not remove team from user", "user", userID, "team", teamID, "error", err)
		}
	}
}

func (s *teamService) addUserTeam(ctx context.Context, userID domain.UserID, teamID domain.TeamID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	for _, id := range user.TeamIDs {
		if id == teamID {
			return nil
		}
	}
	user.TeamIDs = append(user.TeamIDs, teamID)
	return s.users.Save(ctx, user)
}

func (s *teamService) removeUserTeam(ctx context.Context, userID domain.UserID, teamID domain.TeamID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}
	kept := user.TeamIDs[:0]
	for _, id := range user.TeamIDs {
		if id != teamID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(user.TeamIDs) {
		return nil
	}
	user.TeamIDs = kept
	return s.users.Save(ctx, user)
}

// postProcess mirrors the commit with the messaging layer. The three legs
// are independent and run in parallel.
func (s *teamService) postProcess(ctx context.Context, team *domain.Team, delta domain.MembershipDelta) {
	log := logger.FromContext(ctx, s.logger)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		if err := s.granter.Apply(ctx, team, delta); err != nil {
			log.Warnw("team grant propagation incomplete", "team", team.ID, "error", err)
		}
	}()

	go func() {
		defer wg.Done()
		body, err := domain.EntityBody(map[string]interface{}{"team": team})
		if err != nil {
			log.Warnw("could not encode team update", "team", team.ID, "error", err)
			return
		}
		s.messager.PublishWarn(ctx, body, domain.TeamChannel(team.ID))
	}()

	go func() {
		defer wg.Done()
		s.publishRemovals(ctx, team, delta.Removed)
	}()

	wg.Wait()

	s.enqueueFollowUp(ctx, team, delta)
}

// publishRemovals tells each removed user to pull the team from their local
// state. This goes to the user's personal channel because their team channel
// grant is already gone.
func (s *teamService) publishRemovals(ctx context.Context, team *domain.Team, removed []domain.UserID) {
	for _, user := range removed {
		body := domain.DirectiveBody(domain.Directive{
			ID:     string(user),
			Field:  "teamIds",
			Op:     domain.OpPull,
			Values: []string{string(team.ID)},
		})
		s.messager.PublishWarn(ctx, body, domain.UserChannel(user))
	}
}

// enqueueFollowUp hands the membership change to the work queue for
// asynchronous follow-up (email notifications and the like).
func (s *teamService) enqueueFollowUp(ctx context.Context, team *domain.Team, delta domain.MembershipDelta) {
	if s.queue == nil || delta.IsEmpty() {
		return
	}
	body, err := domain.EntityBody(map[string]interface{}{
		"teamId":  team.ID,
		"added":   delta.Added,
		"removed": delta.Removed,
	})
	if err != nil {
		return
	}
	if err := s.queue.Send(ctx, "team_membership_changed", body.Entity); err != nil {
		logger.FromContext(ctx, s.logger).Warnw("could not enqueue membership follow-up",
			"team", team.ID,
			"error", err,
		)
	}
}

// applyMembershipChange applies add/remove sets to a member list, keeping it
// duplicate-free.
func applyMembershipChange(members, add, remove []domain.UserID) []domain.UserID {
	drop := make(map[domain.UserID]bool, len(remove))
	for _, id := range remove {
		drop[id] = true
	}

	present := make(map[domain.UserID]bool, len(members))
	result := make([]domain.UserID, 0, len(members)+len(add))
	for _, id := range members {
		if !drop[id] && !present[id] {
			present[id] = true
			result = append(result, id)
		}
	}
	for _, id := range add {
		if !drop[id] && !present[id] {
			present[id] = true
			result = append(result, id)
		}
	}
	return result
}
