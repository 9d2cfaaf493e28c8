package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/models"
)

// Login opens a session and marks the current user stale so the next
// CurrentUser call fetches it.
func (s *Service) Login(ctx context.Context, creds models.Credentials) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[models.Credentials, struct{}]{
		Name:       "login",
		Fn:         noResult(s.api.Login),
		Invalidate:    func(models.Credentials) []query.Key { return keys(KeyCurrentUser) },
		ErrorTitle:    "Login failed",
		ErrorFallback: genericFailure,
	}, creds)
	return err
}

// Logout ends the session, forgets the stored user and drops its cache entry.
func (s *Service) Logout(ctx context.Context) error {
	_, err := query.Mutate(ctx, s.q, query.Mutation[struct{}, struct{}]{
		Name: "logout",
		Fn: func(ctx context.Context, _ struct{}) (struct{}, error) {
			return struct{}{}, s.api.Logout(ctx)
		},
		OnSuccess: func(c *query.Client, _ struct{}, _ struct{}) {
			c.Remove(KeyCurrentUser)
			if err := s.users.Clear(ctx); err != nil {
				s.log.Warn("failed to clear current user", zap.Error(err))
			}
		},
		ErrorTitle:    "Logout failed",
		ErrorFallback: genericFailure,
	}, struct{}{})
	return err
}
