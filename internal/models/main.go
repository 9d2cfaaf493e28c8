// Package models defines the entities exchanged with the CTF platform API
// and the request payloads the client sends to it.
package models

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Credentials is the payload of the login request.
type Credentials struct {
	// Email identifies the account.
	Email string `json:"email"`
	// Password is sent as-is over TLS; the server sets the session cookie.
	Password string `json:"password"`
}

// Validate checks that both fields are present and the email is well formed.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// Freeze is the payload of the freeze endpoints.
type Freeze struct {
	// UnfreezeAt is an RFC3339 timestamp at which the scoreboard thaws.
	UnfreezeAt string `json:"unfreeze_at"`
}

// Validate requires an RFC3339 timestamp.
func (f Freeze) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.UnfreezeAt, validation.Required, validation.Date("2006-01-02T15:04:05Z07:00")),
	)
}

// Identified is implemented by every entity that carries a numeric ID, so list
// caches can be patched generically.
type Identified interface {
	Identity() int64
}

func (u User) Identity() int64      { return u.ID }
func (u AdminUser) Identity() int64 { return u.ID }
func (t Team) Identity() int64      { return t.ID }
func (c Challenge) Identity() int64 { return c.ID }
func (f Flag) Identity() int64      { return f.ID }
func (h Hint) Identity() int64      { return h.ID }
func (f File) Identity() int64      { return f.ID }
