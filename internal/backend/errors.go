package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTokenExpired is returned before any network call when the bearer
	// token's exp claim has passed.
	ErrTokenExpired = errors.New("backend: session expired, sign in again")
	// ErrNotConfigured is returned by a zero Client.
	ErrNotConfigured = errors.New("backend: client not configured")
)

// NetworkError is a failed call to the storefront backend. Message carries
// the backend's own message verbatim when one was returned.
type NetworkError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backend %s: status %d", e.Op, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusCode relays backend 4xx statuses; everything else is a bad gateway.
func (e *NetworkError) StatusCode() int {
	if e.Status >= 400 && e.Status < 500 {
		return e.Status
	}
	return http.StatusBadGateway
}

// ErrorCode is the code rendered in the JSON error body.
func (e *NetworkError) ErrorCode() string {
	switch {
	case e.Status == http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case e.Status == http.StatusNotFound:
		return "NOT_FOUND"
	case e.Status >= 400 && e.Status < 500:
		return "BACKEND_REJECTED"
	default:
		return "BACKEND_UNAVAILABLE"
	}
}
