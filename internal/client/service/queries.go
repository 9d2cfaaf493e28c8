package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/models"
)

// CurrentUser loads the signed-in user and mirrors every new value into
// the user store.
func (s *Service) CurrentUser(ctx context.Context) (models.User, error) {
	u, err := query.Fetch(ctx, s.q, KeyCurrentUser, s.api.FetchCurrentUser, query.DefaultOptions)
	if err != nil {
		return u, err
	}
	s.syncUser(ctx, u)
	return u, nil
}

func (s *Service) syncUser(ctx context.Context, u models.User) {
	updated := s.q.State(KeyCurrentUser).UpdatedAt
	s.mu.Lock()
	defer s.mu.Unlock()
	if !updated.After(s.synced) {
		return
	}
	s.synced = updated
	if err := s.users.Set(ctx, u); err != nil {
		s.log.Warn("failed to store current user", zap.Int64("id", u.ID), zap.Error(err))
	}
}

func (s *Service) Teams(ctx context.Context) ([]models.Team, error) {
	return query.Fetch(ctx, s.q, KeyTeams, s.api.FetchTeams, query.DefaultOptions)
}

func (s *Service) TeamsAdmin(ctx context.Context) ([]models.Team, error) {
	return query.Fetch(ctx, s.q, KeyTeamsAdmin, s.api.FetchTeamsAdmin, query.DefaultOptions)
}

func (s *Service) Team(ctx context.Context, id int64) (models.Team, error) {
	return query.Fetch(ctx, s.q, TeamKey(id), func(ctx context.Context) (models.Team, error) {
		return s.api.FetchTeam(ctx, id)
	}, query.DefaultOptions)
}

func (s *Service) TeamMembers(ctx context.Context, id int64) ([]models.User, error) {
	return query.Fetch(ctx, s.q, MembersKey(id), func(ctx context.Context) ([]models.User, error) {
		return s.api.FetchTeamMembers(ctx, id)
	}, query.DefaultOptions)
}

func (s *Service) UsersAdmin(ctx context.Context) ([]models.AdminUser, error) {
	return query.Fetch(ctx, s.q, KeyUsers, s.api.FetchUsersAdmin, query.DefaultOptions)
}

func (s *Service) Challenges(ctx context.Context) ([]models.Challenge, error) {
	return query.Fetch(ctx, s.q, KeyChallenges, s.api.FetchChallengesAdmin, query.DefaultOptions)
}

func (s *Service) Challenge(ctx context.Context, id int64) (models.Challenge, error) {
	return query.Fetch(ctx, s.q, ChallengeKey(id), func(ctx context.Context) (models.Challenge, error) {
		return s.api.FetchChallenge(ctx, id)
	}, query.DefaultOptions)
}

func (s *Service) ChallengeFiles(ctx context.Context, id int64) ([]models.File, error) {
	return query.Fetch(ctx, s.q, FilesKey(id), func(ctx context.Context) ([]models.File, error) {
		return s.api.FetchFiles(ctx, id)
	}, query.DefaultOptions)
}

func (s *Service) ChallengeFlags(ctx context.Context, id int64) ([]models.Flag, error) {
	return query.Fetch(ctx, s.q, FlagsKey(id), func(ctx context.Context) ([]models.Flag, error) {
		return s.api.FetchFlags(ctx, id)
	}, query.DefaultOptions)
}

func (s *Service) ChallengeHints(ctx context.Context, id int64) ([]models.Hint, error) {
	return query.Fetch(ctx, s.q, HintsKey(id), func(ctx context.Context) ([]models.Hint, error) {
		return s.api.FetchHints(ctx, id)
	}, query.DefaultOptions)
}

// DownloadFile returns the raw bytes of an attachment.
func (s *Service) DownloadFile(ctx context.Context, challengeID, fileID int64) ([]byte, error) {
	return query.Fetch(ctx, s.q, FileKey(challengeID, fileID), func(ctx context.Context) ([]byte, error) {
		return s.api.DownloadFile(ctx, challengeID, fileID)
	}, query.DefaultOptions)
}
