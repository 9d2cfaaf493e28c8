package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/models"
)

// DeleteUser removes the user from the cached list before the server
// confirms.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[int64, struct{}]{
		Name:   "delete user",
		Fn:     noResult(s.api.DeleteUser),
		Cancel: func(int64) []query.Key { return keys(KeyUsers) },
		OnMutate: func(snap *query.Snapshot, id int64) {
			query.Patch(snap, KeyUsers, RemoveByID[models.AdminUser](id))
		},
		Invalidate:    func(int64) []query.Key { return keys(KeyUsers) },
		ErrorTitle:    "User deletion error",
		ErrorFallback: genericFailure,
	}, id)
	return err
}

// UpdateUser merges upd into the cached user and list, retrying once.
func (s *Service) UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (models.AdminUser, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.UserUpdate, models.AdminUser]{
		Name:    "update user",
		Options: query.UpdateOptions,
		Fn: func(ctx context.Context, upd models.UserUpdate) (models.AdminUser, error) {
			return s.api.UpdateUser(ctx, id, upd)
		},
		Cancel: func(models.UserUpdate) []query.Key { return keys(KeyUsers, UserKey(id)) },
		OnMutate: func(snap *query.Snapshot, upd models.UserUpdate) {
			query.Patch(snap, UserKey(id), upd.ApplyAdmin)
			query.Patch(snap, KeyUsers, MapByID(id, upd.ApplyAdmin))
		},
		OnSuccess: func(c *query.Client, _ models.UserUpdate, u models.AdminUser) {
			c.SetData(UserKey(id), u)
			query.Update(c, KeyUsers, ReplaceByID(u))
		},
		Invalidate: func(models.UserUpdate) []query.Key { return keys(KeyUsers, UserKey(id)) },
		Success: func(_ models.UserUpdate, u models.AdminUser) *query.Toast {
			return success("User updated successfully", fmt.Sprintf("Changes to %s have been saved", u.Name))
		},
		ErrorTitle:    "Update failed",
		ErrorFallback: "Failed to update user data",
	}, upd)
}

func (s *Service) CreateUser(ctx context.Context, nu models.NewUser) (models.AdminUser, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewUser, models.AdminUser]{
		Name:       "create user",
		Fn:         s.api.CreateUser,
		Invalidate: func(models.NewUser) []query.Key { return keys(KeyUsers) },
		Success: func(_ models.NewUser, u models.AdminUser) *query.Toast {
			return success("User has been created", fmt.Sprintf("User %s has been added", u.Name))
		},
		ErrorTitle:    "User creation error",
		ErrorFallback: genericFailure,
	}, nu)
}
