package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/models"
)

// DeleteTeam removes the team from the admin list before the server
// confirms and puts it back if the request fails.
func (s *Service) DeleteTeam(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[int64, struct{}]{
		Name:   "delete team",
		Fn:     noResult(s.api.DeleteTeam),
		Cancel: func(int64) []query.Key { return keys(KeyTeamsAdmin) },
		OnMutate: func(snap *query.Snapshot, id int64) {
			query.Patch(snap, KeyTeamsAdmin, RemoveByID[models.Team](id))
		},
		Invalidate: func(int64) []query.Key { return keys(KeyTeamsAdmin) },
		Success: func(int64, struct{}) *query.Toast {
			return success("Team has been deleted", "")
		},
		ErrorTitle:    "Team deletion error",
		ErrorFallback: "Try again",
	}, id)
	return err
}

// UpdateTeam merges upd into the cached team and admin list, retrying once.
func (s *Service) UpdateTeam(ctx context.Context, id int64, upd models.TeamUpdate) (models.Team, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.TeamUpdate, models.Team]{
		Name:    "update team",
		Options: query.UpdateOptions,
		Fn: func(ctx context.Context, upd models.TeamUpdate) (models.Team, error) {
			return s.api.UpdateTeam(ctx, id, upd)
		},
		Cancel: func(models.TeamUpdate) []query.Key { return keys(KeyTeamsAdmin, TeamKey(id)) },
		OnMutate: func(snap *query.Snapshot, upd models.TeamUpdate) {
			query.Patch(snap, TeamKey(id), upd.Apply)
			query.Patch(snap, KeyTeamsAdmin, MapByID(id, upd.Apply))
		},
		OnSuccess: func(c *query.Client, _ models.TeamUpdate, t models.Team) {
			c.SetData(TeamKey(id), t)
			query.Update(c, KeyTeamsAdmin, ReplaceByID(t))
		},
		Invalidate: func(models.TeamUpdate) []query.Key { return keys(KeyTeamsAdmin, TeamKey(id)) },
		Success: func(_ models.TeamUpdate, t models.Team) *query.Toast {
			return success("Team updated successfully", fmt.Sprintf("Changes to %s have been saved", t.Name))
		},
		ErrorTitle:    "Update failed",
		ErrorFallback: "Failed to update team data",
	}, upd)
}

func (s *Service) CreateTeam(ctx context.Context, nt models.NewTeam) (models.Team, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewTeam, models.Team]{
		Name:       "create team",
		Fn:         s.api.CreateTeam,
		Invalidate: func(models.NewTeam) []query.Key { return keys(KeyTeamsAdmin) },
		Success: func(_ models.NewTeam, t models.Team) *query.Toast {
			return success("Team has been created", fmt.Sprintf("Team %s has been added", t.Name))
		},
		ErrorTitle:    "Team creation error",
		ErrorFallback: genericFailure,
	}, nt)
}
