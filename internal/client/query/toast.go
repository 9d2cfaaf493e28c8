package query

import "errors"

// Level is the severity of a Toast.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Toast is a user-visible notification emitted when a mutation settles.
type Toast struct {
	Level       Level
	Title       string
	Description string
}

// Notifier shows toasts to the user.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

type nopNotifier struct{}

func (nopNotifier) Notify(Toast) {}

// Describe returns the message the server attached to err, or fallback when
// there is none (network failures, 5xx).
func Describe(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
