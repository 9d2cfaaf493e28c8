package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// User is a player account as returned by /users/me and /teams/{id}/members.
type User struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Website     *string   `json:"website"`
	Affiliation *string   `json:"affiliation"`
	Country     *string   `json:"country"`
	TeamID      *int64    `json:"team_id"`
	Score       int       `json:"score"`
	Verified    bool      `json:"verified"`
	Banned      bool      `json:"banned"`
	Hidden      bool      `json:"hidden"`
	Created     time.Time `json:"created"`
}

// AdminUser is the admin listing view of a user.
type AdminUser struct {
	User
	Type       string `json:"type"`
	Properties string `json:"properties"`
}

// UserUpdate carries the fields an admin may change. Nil fields are not sent.
type UserUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Type       *string `json:"type,omitempty"`
	Banned     *bool   `json:"banned,omitempty"`
	Verified   *bool   `json:"verified,omitempty"`
	Hidden     *bool   `json:"hidden,omitempty"`
	TeamID     *int64  `json:"team_id,omitempty"`
	Properties *string `json:"properties,omitempty"`
}

// Validate rejects empty names and malformed emails when they are set.
func (u UserUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.NilOrNotEmpty),
		validation.Field(&u.Email, validation.NilOrNotEmpty, is.Email),
		validation.Field(&u.Type, validation.NilOrNotEmpty, validation.In("user", "admin")),
	)
}

// Apply returns a copy of u with the non-nil fields of upd merged in.
func (upd UserUpdate) Apply(u User) User {
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Banned != nil {
		u.Banned = *upd.Banned
	}
	if upd.Verified != nil {
		u.Verified = *upd.Verified
	}
	if upd.Hidden != nil {
		u.Hidden = *upd.Hidden
	}
	if upd.TeamID != nil {
		id := *upd.TeamID
		u.TeamID = &id
	}
	return u
}

// ApplyAdmin is Apply for the admin listing view.
func (upd UserUpdate) ApplyAdmin(u AdminUser) AdminUser {
	u.User = upd.Apply(u.User)
	if upd.Type != nil {
		u.Type = *upd.Type
	}
	if upd.Properties != nil {
		u.Properties = *upd.Properties
	}
	return u
}

// NewUser is the payload for admin user creation.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (n NewUser) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&n.Email, validation.Required, is.Email),
		validation.Field(&n.Password, validation.Required, validation.Length(6, 0)),
	)
}
