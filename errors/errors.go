package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrAuthExpired indicates the session could not be refreshed and the
	// user must log in again
	ErrAuthExpired = errors.New("session expired")

	// ErrProtocol indicates a malformed success response from the server
	// (e.g. a missing task_id or result field)
	ErrProtocol = errors.New("unexpected server response")

	// ErrTimeout indicates a request exceeded its deadline before the
	// server answered
	ErrTimeout = errors.New("request timed out")

	// ErrNetwork indicates a transport-level failure (DNS, timeout, abort)
	ErrNetwork = errors.New("network error")
)

// APIError is a non-2xx response carrying the server-supplied detail, or a
// message synthesized from the HTTP status when the body had none.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// NewAPIError builds an APIError from a status code and optional detail.
func NewAPIError(status int, detail string) *APIError {
	return &APIError{Status: status, Detail: detail}
}

// AsAPIError unwraps err into an *APIError if it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsAuthExpired checks if error is a session expiry error
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsProtocol checks if error is a malformed-response error
func IsProtocol(err error) bool {
	return errors.Is(err, ErrProtocol)
}

// IsTimeout checks if error is a request deadline expiry
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsNetwork checks if error is a transport-level failure
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
