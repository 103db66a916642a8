package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthUnavailable is returned when the auth service cannot be reached
	// or answers with a server error.
	ErrAuthUnavailable    = errors.New("authentication service unavailable")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid access token")
	ErrTokenExpired       = errors.New("access token expired")

	ErrQueryFailed      = errors.New("query failed")
	ErrConflict         = errors.New("row conflicts with an existing row")
	ErrForbidden        = errors.New("operation rejected by access rules")
	ErrInvalidReference = errors.New("row references a missing record")
	ErrInvalidQuery     = errors.New("invalid query")
)

// APIError is a non-2xx answer from the auth or data API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// Unwrap classifies the error so callers can use errors.Is with the
// sentinels above instead of inspecting status codes.
func (e *APIError) Unwrap() error {
	switch {
	case e.Code == "23505" || e.Status == http.StatusConflict:
		return ErrConflict
	case e.Code == "23503":
		return ErrInvalidReference
	case e.Code == "42501" || e.Status == http.StatusForbidden || e.Status == http.StatusUnauthorized:
		return ErrForbidden
	case e.Status >= http.StatusInternalServerError:
		return ErrQueryFailed
	}
	return nil
}
