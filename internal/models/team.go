package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Team is a competing team. Its roster is fetched separately.
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       *string   `json:"email"`
	Website     *string   `json:"website"`
	Affiliation *string   `json:"affiliation"`
	Country     *string   `json:"country"`
	Verified    bool      `json:"verified"`
	Banned      bool      `json:"banned"`
	Hidden      bool      `json:"hidden"`
	Admin       bool      `json:"admin"`
	Created     time.Time `json:"created"`
}

// TeamUpdate carries the fields an admin may change on a team.
type TeamUpdate struct {
	Name   *string `json:"name,omitempty"`
	Banned *bool   `json:"banned,omitempty"`
	Hidden *bool   `json:"hidden,omitempty"`
}

// Validate rejects an empty name when it is set.
func (u TeamUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.NilOrNotEmpty, validation.Length(1, 128)),
	)
}

// Apply returns a copy of t with the non-nil fields merged in.
func (u TeamUpdate) Apply(t Team) Team {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Banned != nil {
		t.Banned = *u.Banned
	}
	if u.Hidden != nil {
		t.Hidden = *u.Hidden
	}
	return t
}

// NewTeam is the payload for admin team creation.
type NewTeam struct {
	Name string `json:"name"`
}

// Validate requires a name.
func (n NewTeam) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required, validation.Length(1, 128)),
	)
}
