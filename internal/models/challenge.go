package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ChallengeState controls whether players can see a challenge.
type ChallengeState string

// ChallengeType selects the scoring model applied by the server.
type ChallengeType string

const (
	// StateVisible challenges are listed for players.
	StateVisible ChallengeState = "visible"
	// StateHidden challenges are admin-only.
	StateHidden ChallengeState = "hidden"

	// TypeStandard challenges keep a fixed value.
	TypeStandard ChallengeType = "standard"
	// TypeDynamic challenges decay as they are solved.
	TypeDynamic ChallengeType = "dynamic"
)

// Challenge is a task players solve by submitting a flag.
type Challenge struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Value       int            `json:"value"`
	CategoryID  int64          `json:"category_id"`
	State       ChallengeState `json:"state"`
	MaxAttempts int            `json:"max_attempts"`
	Type        ChallengeType  `json:"type"`
	Created     time.Time      `json:"created"`
	Start       *time.Time     `json:"start"`
	End         *time.Time     `json:"end"`
	Freeze      bool           `json:"freeze"`
	SolvedByMe  bool           `json:"solved_by_me"`
}

// ChallengeUpdate carries the editable fields of a challenge.
type ChallengeUpdate struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Value       *int            `json:"value,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	State       *ChallengeState `json:"state,omitempty"`
	MaxAttempts *int            `json:"max_attempts,omitempty"`
	Type        *ChallengeType  `json:"type,omitempty"`
	Start       *time.Time      `json:"start,omitempty"`
	End         *time.Time      `json:"end,omitempty"`
}

// Validate checks ranges and enums of the fields that are set.
func (u ChallengeUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.NilOrNotEmpty),
		validation.Field(&u.Value, validation.Min(0)),
		validation.Field(&u.MaxAttempts, validation.Min(0)),
		validation.Field(&u.State, validation.In(StateVisible, StateHidden)),
		validation.Field(&u.Type, validation.In(TypeStandard, TypeDynamic)),
	)
}

// Apply returns a copy of c with the non-nil fields merged in.
func (u ChallengeUpdate) Apply(c Challenge) Challenge {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Value != nil {
		c.Value = *u.Value
	}
	if u.CategoryID != nil {
		c.CategoryID = *u.CategoryID
	}
	if u.State != nil {
		c.State = *u.State
	}
	if u.MaxAttempts != nil {
		c.MaxAttempts = *u.MaxAttempts
	}
	if u.Type != nil {
		c.Type = *u.Type
	}
	if u.Start != nil {
		start := *u.Start
		c.Start = &start
	}
	if u.End != nil {
		end := *u.End
		c.End = &end
	}
	return c
}

// NewChallenge is the payload for challenge creation.
type NewChallenge struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Value       int            `json:"value"`
	CategoryID  int64          `json:"category_id"`
	State       ChallengeState `json:"state"`
	MaxAttempts int            `json:"max_attempts"`
	Type        ChallengeType  `json:"type"`
	Start       *time.Time     `json:"start,omitempty"`
	End         *time.Time     `json:"end,omitempty"`
}

// Validate checks required fields and enums.
func (n NewChallenge) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required),
		validation.Field(&n.Value, validation.Min(0)),
		validation.Field(&n.MaxAttempts, validation.Min(0)),
		validation.Field(&n.State, validation.Required, validation.In(StateVisible, StateHidden)),
		validation.Field(&n.Type, validation.Required, validation.In(TypeStandard, TypeDynamic)),
	)
}

// Flag is an accepted answer for a challenge.
type Flag struct {
	ID          int64  `json:"id"`
	ChallengeID int64  `json:"challenge_id"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Data        string `json:"data,omitempty"`
}

// NewFlag is the payload for flag creation and edits.
type NewFlag struct {
	ChallengeID int64  `json:"challenge_id"`
	Content     string `json:"content"`
	Type        string `json:"type"`
	Data        string `json:"data,omitempty"`
}

// Validate requires content and a known match type.
func (n NewFlag) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Content, validation.Required),
		validation.Field(&n.Type, validation.Required, validation.In("static", "regex")),
	)
}

// Hint is a purchasable clue attached to a challenge.
type Hint struct {
	ID          int64  `json:"id"`
	ChallengeID int64  `json:"challenge_id"`
	Content     string `json:"content"`
	Cost        int    `json:"cost"`
	Type        string `json:"type"`
}

// NewHint is the payload for hint creation and edits.
type NewHint struct {
	ChallengeID int64  `json:"challenge_id"`
	Content     string `json:"content"`
	Cost        int    `json:"cost"`
	Type        string `json:"type,omitempty"`
}

// Validate requires content and a non-negative cost.
func (n NewHint) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Content, validation.Required),
		validation.Field(&n.Cost, validation.Min(0)),
	)
}

// File is an attachment stored by the server for a challenge.
type File struct {
	ID          int64  `json:"id"`
	ChallengeID int64  `json:"challenge_id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Type        string `json:"type"`
}
