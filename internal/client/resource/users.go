package resource

import (
	"context"
	"fmt"

	"github.com/atinyakov/CTFClient/internal/models"
)

// Login opens a session; the server answers with a session cookie.
func (s *Resources) Login(ctx context.Context, creds models.Credentials) error {
	if err := validate("login", creds); err != nil {
		return err
	}
	return s.r.Post(ctx, usersURL+"/login", creds, nil)
}

// Logout ends the session; the server expires the cookie.
func (s *Resources) Logout(ctx context.Context) error {
	return s.r.Post(ctx, usersURL+"/logout", nil, nil)
}

// FetchCurrentUser returns the user the session belongs to.
func (s *Resources) FetchCurrentUser(ctx context.Context) (models.User, error) {
	var u models.User
	err := s.r.Get(ctx, usersURL+"/me", &u)
	return u, err
}

// FetchUsersAdmin lists every account with admin-only fields.
func (s *Resources) FetchUsersAdmin(ctx context.Context) ([]models.AdminUser, error) {
	var users []models.AdminUser
	err := s.r.Get(ctx, adminUsersURL, &users)
	return users, err
}

func (s *Resources) DeleteUser(ctx context.Context, id int64) error {
	if err := requireID("delete user", id); err != nil {
		return err
	}
	return s.r.Delete(ctx, fmt.Sprintf("%s/%d", adminUsersURL, id), nil)
}

// UpdateUser sends only the set fields of upd and returns the stored user.
func (s *Resources) UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (models.AdminUser, error) {
	var u models.AdminUser
	if err := requireID("update user", id); err != nil {
		return u, err
	}
	if err := validate("update user", upd); err != nil {
		return u, err
	}
	err := s.r.Patch(ctx, fmt.Sprintf("%s/%d", adminUsersURL, id), upd, &u)
	return u, err
}

func (s *Resources) CreateUser(ctx context.Context, nu models.NewUser) (models.AdminUser, error) {
	var u models.AdminUser
	if err := validate("create user", nu); err != nil {
		return u, err
	}
	err := s.r.Post(ctx, adminUsersURL, nu, &u)
	return u, err
}
