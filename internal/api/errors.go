package api

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError indicates the backend rejected the caller's credentials
// (HTTP 401 or 403). For the refresh endpoint this is terminal for the
// session; for other endpoints it usually means the token needs a refresh.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authorization failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("authorization failed: status %d: %s", e.StatusCode, e.Message)
}

// APIError is any other non-2xx backend response. These are treated as
// transient: the session stays intact and the caller may retry.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api request failed: status %d: %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err (anywhere in its chain) is a credential
// rejection from the backend.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

func statusError(code int, message string) error {
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return &AuthError{StatusCode: code, Message: message}
	}
	return &APIError{StatusCode: code, Message: message}
}
