package directory

import (
	"errors"
	"fmt"
)

// ErrNotFound reports a 404 from the store; callers usually treat it
// as an empty collection rather than a failure.
var ErrNotFound = errors.New("directory: not found")

// ErrAuth reports a 401/403 from the store. Fatal for the call,
// retried on the next cycle.
var ErrAuth = errors.New("directory: authentication failed")

// TransportError reports a network failure or an unexpected status.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("directory: http %d", e.Status)
	}
	return fmt.Sprintf("directory: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a malformed response body.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("directory: parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
