package servant

import (
	"errors"
	"fmt"
)

// Common errors returned by servant operations
var (
	// ErrMalformedTag indicates a tag without the _p<port>p_ delimiter
	ErrMalformedTag = errors.New("servant: malformed tag")

	// ErrNameRequired indicates an empty service name
	ErrNameRequired = errors.New("servant: service name required")

	// ErrNotReady indicates a worker did not answer health checks within its budget
	ErrNotReady = errors.New("servant: service not available")

	// ErrTransport indicates a failed or non-200 RPC exchange
	ErrTransport = errors.New("servant: transport failure")

	// ErrNotAttached indicates an operation on a supervisor without a worker process
	ErrNotAttached = errors.New("servant: no worker process")

	// ErrUnknownService indicates a service name with no registered factory
	ErrUnknownService = errors.New("servant: unknown service")

	// ErrNotSupported indicates process scanning is unavailable on this platform
	ErrNotSupported = errors.New("servant: not supported on this platform")
)

// OpError represents an error from a servant operation
type OpError struct {
	// Op is the operation that failed
	Op Operation
	// Name is the service name or tag involved in the operation
	Name string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("servant %s %q: %v", e.Op.String(), e.Name, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// TransportError describes a failed RPC exchange with a worker
type TransportError struct {
	// URL is the request URL
	URL string
	// StatusCode is the HTTP status, or 0 when no response was received
	StatusCode int
	// Err is the underlying cause, if any
	Err error
}

// Error returns a formatted error message
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("servant: transport %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("servant: transport %s: %v", e.URL, e.Err)
}

// Unwrap exposes both ErrTransport and the underlying cause
func (e *TransportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransport}
	}
	return []error{ErrTransport, e.Err}
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap returns the accumulated errors for errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
