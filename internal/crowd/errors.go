package crowd

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection indicates the Crowd server could not be reached at all.
	ErrConnection = errors.New("failed to connect to crowd server")

	// ErrInvalidResponse indicates Crowd answered with a body that could not
	// be decoded, or with an unexpected server-side (5xx) status.
	ErrInvalidResponse = errors.New("invalid response from crowd server")

	// ErrUnauthorized indicates Crowd rejected the presented credentials.
	ErrUnauthorized = errors.New("crowd rejected credentials")

	// ErrNotFound indicates the requested entity does not exist in Crowd.
	ErrNotFound = errors.New("entity not found in crowd")

	// ErrConflict indicates Crowd rejected the payload, e.g. a duplicate
	// username or an invalid entity.
	ErrConflict = errors.New("crowd rejected entity")

	// ErrValueTooLarge indicates an attribute value exceeds the storage limit
	// after JSON encoding. Raised locally, before any network call.
	ErrValueTooLarge = errors.New("attribute value too large")
)

// APIError is a non-2xx response from the Crowd REST API. The Reason and
// Message fields carry Crowd's error payload verbatim so callers can log or
// surface it without re-fetching.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("crowd: %s %s returned %d: %s (%s)",
			e.Method, e.Path, e.StatusCode, e.Message, e.Reason)
	}
	return fmt.Sprintf("crowd: %s %s returned %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap maps well-known status codes onto the package sentinel errors so
// callers can use errors.Is without inspecting status codes themselves.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == 401 || e.StatusCode == 403:
		return ErrUnauthorized
	case e.StatusCode == 404:
		return ErrNotFound
	case e.StatusCode == 409:
		return ErrConflict
	case e.StatusCode >= 500:
		return ErrInvalidResponse
	}
	return nil
}

func asAPIError(err error, target **APIError) bool {
	return errors.As(err, target)
}

// IsClientError reports whether the error is an APIError in the 4xx range.
// The verification adapter uses this to distinguish a rejection (bad
// credentials, unknown entity) from a service failure.
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}
