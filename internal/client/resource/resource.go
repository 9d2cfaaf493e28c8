// Package resource maps every REST operation of the platform to one typed
// method. Methods are stateless: they validate input, call the HTTP client
// and return its error unchanged.
package resource

import (
	"context"
	"fmt"
	"io"
)

const (
	usersURL          = "/users"
	teamsURL          = "/teams"
	adminUsersURL     = "/admin/users"
	adminTeamsURL     = "/admin/teams"
	adminChallengeURL = "/admin/challenges"
	notificationURL   = "/notifications"
)

// Requester is the subset of *api.Client the resources need.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
	Download(ctx context.Context, path string) ([]byte, error)
}

// Resources groups the endpoint methods.
type Resources struct {
	r Requester
}

// New binds the resources to r, usually an *api.Client.
func New(r Requester) *Resources {
	return &Resources{r: r}
}

// validatable is implemented by every request payload in models.
type validatable interface {
	Validate() error
}

// ValidationError reports a payload rejected before it reached the network.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UserMessage exposes the validation text to toasts.
func (e *ValidationError) UserMessage() string { return e.Err.Error() }

func validate(op string, v validatable) error {
	if err := v.Validate(); err != nil {
		return &ValidationError{Op: op, Err: err}
	}
	return nil
}

func requireID(op string, ids ...int64) error {
	for _, id := range ids {
		if id <= 0 {
			return &ValidationError{Op: op, Err: fmt.Errorf("id must be positive, got %d", id)}
		}
	}
	return nil
}

// challengePath joins parts under /admin/challenges/{id}.
func challengePath(id int64, parts ...any) string {
	p := fmt.Sprintf("%s/%d", adminChallengeURL, id)
	for _, part := range parts {
		p += fmt.Sprintf("/%v", part)
	}
	return p
}

// Upload is a file to attach to a challenge.
type Upload struct {
	Name    string
	Type    string
	Content io.Reader
}
