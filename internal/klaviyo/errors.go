package klaviyo

import (
	"errors"
	"fmt"
)

// ErrMissingKey is returned when an operation is attempted with an empty
// API key. It never involves a network call.
var ErrMissingKey = errors.New("klaviyo: API key is required")

// ConnectionError wraps a transport-level failure (DNS, TCP, timeout).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("klaviyo: connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// InvalidKeyError means the remote rejected the credential on the
// account-info check.
type InvalidKeyError struct {
	Status int
	Detail string
}

func (e *InvalidKeyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("klaviyo: invalid credentials (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("klaviyo: invalid credentials (HTTP %d)", e.Status)
}

// APIError is a non-2xx response from a read/write endpoint, carrying the
// detail string extracted from the JSON:API errors array when present.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("klaviyo: API error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("klaviyo: API error (HTTP %d)", e.Status)
}
