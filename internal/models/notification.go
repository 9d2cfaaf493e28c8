package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Notification is an announcement pushed by the server.
type Notification struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
}

// ClientNotification is a Notification with local read state.
type ClientNotification struct {
	Notification
	IsRead bool `json:"is_read"`
}

// NewNotification is the payload for publishing an announcement.
type NewNotification struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Validate requires both fields.
func (n NewNotification) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required, validation.Length(1, 256)),
		validation.Field(&n.Content, validation.Required),
	)
}
