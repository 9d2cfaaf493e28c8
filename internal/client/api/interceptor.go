package api

import (
	"net/http"
	"strings"
)

// Navigator is the view router of the presentation layer.
type Navigator interface {
	// Path returns the current view.
	Path() string
	// Navigate replaces the current view.
	Navigate(path string)
}

// ErrorInterceptor observes every failed request before the error is
// returned to the caller.
type ErrorInterceptor func(*Error)

// DefaultLoginPath is where SessionExpiry sends the user.
const DefaultLoginPath = "/login"

// SessionExpiry returns the interceptor that sends the user to the login
// view when the server answers 401, unless that view is already shown.
func SessionExpiry(nav Navigator, loginPath string) ErrorInterceptor {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return func(e *Error) {
		if e.Status != http.StatusUnauthorized {
			return
		}
		if strings.Contains(nav.Path(), loginPath) {
			return
		}
		nav.Navigate(loginPath)
	}
}
