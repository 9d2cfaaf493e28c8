package resource

import (
	"context"

	"github.com/atinyakov/CTFClient/internal/models"
)

// CreateNotification publishes an announcement to every connected player.
func (s *Resources) CreateNotification(ctx context.Context, n models.NewNotification) (models.Notification, error) {
	var out models.Notification
	if err := validate("create notification", n); err != nil {
		return out, err
	}
	err := s.r.Post(ctx, notificationURL, n, &out)
	return out, err
}
