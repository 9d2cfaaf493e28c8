package resource

import (
	"context"
	"fmt"

	"github.com/atinyakov/CTFClient/internal/models"
)

// FetchTeams lists the public teams.
func (s *Resources) FetchTeams(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := s.r.Get(ctx, teamsURL, &teams)
	return teams, err
}

// FetchTeamsAdmin lists every team including hidden and banned ones.
func (s *Resources) FetchTeamsAdmin(ctx context.Context) ([]models.Team, error) {
	var teams []models.Team
	err := s.r.Get(ctx, adminTeamsURL, &teams)
	return teams, err
}

func (s *Resources) FetchTeam(ctx context.Context, id int64) (models.Team, error) {
	var t models.Team
	if err := requireID("fetch team", id); err != nil {
		return t, err
	}
	err := s.r.Get(ctx, fmt.Sprintf("%s/%d", teamsURL, id), &t)
	return t, err
}

func (s *Resources) FetchTeamMembers(ctx context.Context, id int64) ([]models.User, error) {
	var members []models.User
	if err := requireID("fetch team members", id); err != nil {
		return nil, err
	}
	err := s.r.Get(ctx, fmt.Sprintf("%s/%d/members", teamsURL, id), &members)
	return members, err
}

func (s *Resources) DeleteTeam(ctx context.Context, id int64) error {
	if err := requireID("delete team", id); err != nil {
		return err
	}
	return s.r.Delete(ctx, fmt.Sprintf("%s/%d", adminTeamsURL, id), nil)
}

// UpdateTeam sends only the set fields of upd and returns the stored team.
func (s *Resources) UpdateTeam(ctx context.Context, id int64, upd models.TeamUpdate) (models.Team, error) {
	var t models.Team
	if err := requireID("update team", id); err != nil {
		return t, err
	}
	if err := validate("update team", upd); err != nil {
		return t, err
	}
	err := s.r.Patch(ctx, fmt.Sprintf("%s/%d", adminTeamsURL, id), upd, &t)
	return t, err
}

func (s *Resources) CreateTeam(ctx context.Context, nt models.NewTeam) (models.Team, error) {
	var t models.Team
	if err := validate("create team", nt); err != nil {
		return t, err
	}
	err := s.r.Post(ctx, adminTeamsURL, nt, &t)
	return t, err
}
