package svcctl

import (
	"errors"
	"fmt"
)

// Common errors returned by service control operations
var (
	// ErrNulByte indicates caller-supplied text contains an embedded nul
	ErrNulByte = errors.New("svcctl: nul byte in input")

	// ErrDecode indicates a response record could not be decoded
	ErrDecode = errors.New("svcctl: record decode")

	// ErrClosed indicates the handle was already closed
	ErrClosed = errors.New("svcctl: handle closed")

	// ErrUnsupported indicates the named pipe transport is unavailable
	// on this platform
	ErrUnsupported = errors.New("svcctl: named pipe transport unavailable on this platform")
)

// Errno is a Win32 error code returned by the service control manager.
// The code is preserved verbatim so callers can branch on specific values
// with errors.Is; its meaning is defined by the authority, not this package.
//
// Reference: https://learn.microsoft.com/windows/win32/debug/system-error-codes
type Errno uint32

// Error codes the service control manager commonly returns.
const (
	// ErrAccessDenied means the handle lacks the required access right
	ErrAccessDenied Errno = 5
	// ErrInvalidHandle means the handle is no longer valid
	ErrInvalidHandle Errno = 6
	// ErrInvalidParameter means a parameter was rejected
	ErrInvalidParameter Errno = 87
	// ErrInsufficientBuffer means the reply needs a larger buffer
	ErrInsufficientBuffer Errno = 122
	// ErrInvalidName means the service name is malformed
	ErrInvalidName Errno = 123
	// ErrMoreData means more entries remain than the buffer could hold
	ErrMoreData Errno = 234
	// ErrDependentServicesRunning means running services depend on this one
	ErrDependentServicesRunning Errno = 1051
	// ErrInvalidServiceControl means the control is not valid for the service
	ErrInvalidServiceControl Errno = 1052
	// ErrServiceRequestTimeout means the service did not respond in time
	ErrServiceRequestTimeout Errno = 1053
	// ErrServiceAlreadyRunning means the service is already running
	ErrServiceAlreadyRunning Errno = 1056
	// ErrInvalidServiceAccount means the account name is invalid
	ErrInvalidServiceAccount Errno = 1057
	// ErrServiceDisabled means the service is disabled
	ErrServiceDisabled Errno = 1058
	// ErrCircularDependency means the dependency list forms a cycle
	ErrCircularDependency Errno = 1059
	// ErrServiceDoesNotExist means no service has the given name
	ErrServiceDoesNotExist Errno = 1060
	// ErrServiceCannotAcceptControl means the service rejects the control
	// in its current state
	ErrServiceCannotAcceptControl Errno = 1061
	// ErrServiceNotActive means the service is not running
	ErrServiceNotActive Errno = 1062
	// ErrDatabaseDoesNotExist means the named database does not exist
	ErrDatabaseDoesNotExist Errno = 1065
	// ErrServiceLogonFailure means the service account could not log on
	ErrServiceLogonFailure Errno = 1069
	// ErrServiceMarkedForDelete means the service is pending deletion
	ErrServiceMarkedForDelete Errno = 1072
	// ErrServiceExists means a service with this name already exists
	ErrServiceExists Errno = 1073
	// ErrDuplicateServiceName means the display name is already in use
	ErrDuplicateServiceName Errno = 1078
	// ErrNotFound means no element matched the query, notably a display
	// name with no registered service
	ErrNotFound Errno = 1168
)

// errnoText maps well-known codes to short descriptions. Codes outside the
// map are still surfaced verbatim.
var errnoText = map[Errno]string{
	ErrAccessDenied:               "access denied",
	ErrInvalidHandle:              "invalid handle",
	ErrInvalidParameter:           "invalid parameter",
	ErrInsufficientBuffer:         "insufficient buffer",
	ErrInvalidName:                "invalid name",
	ErrMoreData:                   "more data available",
	ErrDependentServicesRunning:   "dependent services are running",
	ErrInvalidServiceControl:      "invalid service control",
	ErrServiceRequestTimeout:      "service request timeout",
	ErrServiceAlreadyRunning:      "service already running",
	ErrInvalidServiceAccount:      "invalid service account",
	ErrServiceDisabled:            "service is disabled",
	ErrCircularDependency:         "circular service dependency",
	ErrServiceDoesNotExist:        "service does not exist",
	ErrServiceCannotAcceptControl: "service cannot accept control",
	ErrServiceNotActive:           "service is not active",
	ErrDatabaseDoesNotExist:       "database does not exist",
	ErrServiceLogonFailure:        "service logon failure",
	ErrServiceMarkedForDelete:     "service marked for delete",
	ErrServiceExists:              "service already exists",
	ErrDuplicateServiceName:       "duplicate service display name",
	ErrNotFound:                   "element not found",
}

// Error returns the description for well-known codes and the raw value
// otherwise.
func (e Errno) Error() string {
	if s, ok := errnoText[e]; ok {
		return s
	}
	return fmt.Sprintf("errno %d", uint32(e))
}

// NulByteError reports caller-supplied text that contains an embedded nul
// character. It is returned before any native call is issued, since the
// wide-character encoding is null-terminated and an embedded nul would
// silently truncate the authority's view of the string.
type NulByteError struct {
	// Field names the offending input
	Field string
}

// Error returns a formatted error message
func (e *NulByteError) Error() string {
	return fmt.Sprintf("svcctl: %s contains a nul byte", e.Field)
}

// Unwrap returns ErrNulByte for error chain inspection
func (e *NulByteError) Unwrap() error {
	return ErrNulByte
}

// DecodeError reports a response record field holding a value outside the
// known enumeration, or a string field whose offset falls outside the
// record buffer. Free-text fields never produce a DecodeError; they decode
// lossily instead.
type DecodeError struct {
	// Field names the record field that failed
	Field string
	// Value is the rejected numeric value
	Value uint32
}

// Error returns a formatted error message
func (e *DecodeError) Error() string {
	return fmt.Sprintf("svcctl: unknown %s value %#x", e.Field, e.Value)
}

// Unwrap returns ErrDecode for error chain inspection
func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// OpError represents an error from a service control operation
type OpError struct {
	// Op is the native call that failed
	Op string
	// Name is the machine, database, or service name involved
	Name string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("svcctl %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("svcctl %s %q: %v", e.Op, e.Name, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
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

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
