package scorer

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is returned for 401 responses: bad signatures, used
	// nonces, expired or revoked tokens and unknown API keys
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned for 404 responses, including communities
	// that belong to another account
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned when the server rejected the request body
	ErrBadRequest = errors.New("bad request")
)

// APIError is a non-2xx response from the scorer API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scorer: %d %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto the package sentinels so callers can
// use errors.Is
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest:
		return ErrBadRequest
	}
	return nil
}
