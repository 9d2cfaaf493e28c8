package service

import (
	"context"

	"github.com/atinyakov/CTFClient/internal/client/query"
	"github.com/atinyakov/CTFClient/internal/models"
)

// CreateNotification publishes an announcement. Subscribers receive it
// through the notification stream, not through the cache.
func (s *Service) CreateNotification(ctx context.Context, nn models.NewNotification) (models.Notification, error) {
	return query.Mutate(ctx, s.q, query.Mutation[models.NewNotification, models.Notification]{
		Name:       "create notification",
		Fn:         s.api.CreateNotification,
		Invalidate: func(models.NewNotification) []query.Key { return keys(KeyNotifications) },
		Success: func(models.NewNotification, models.Notification) *query.Toast {
			return success("Notification has been created", "")
		},
		ErrorTitle:    "Notification creation error",
		ErrorFallback: genericFailure,
	}, nn)
}
