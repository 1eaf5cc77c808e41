package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business domain error with a structured error code.
// Codes have the form PX-<AREA>-<NNNN>; the last three digits mirror the
// HTTP status a transport should use.
type DomainError struct {
	Code    string // Error code (e.g., "PX-CELL-4001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return code == "" || de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Cell errors.
var (
	// ErrInvalidCoordinate indicates x or y is outside the grid.
	ErrInvalidCoordinate = NewDomainError("PX-CELL-4001", "coordinate out of bounds")

	// ErrInvalidColor indicates the color is not a #rgb or #rrggbb token.
	ErrInvalidColor = NewDomainError("PX-CELL-4002", "invalid color")

	// ErrBatchTooLarge indicates a batch exceeded the configured maximum.
	ErrBatchTooLarge = NewDomainError("PX-CELL-4003", "batch too large")
)

// Epoch errors.
var (
	// ErrDuplicateRollover indicates a rollover was requested for an epoch
	// that is already closed. Callers swallow it; it is never sent to clients.
	ErrDuplicateRollover = NewDomainError("PX-EPOCH-4090", "epoch already rolled over")
)

// Archive errors.
var (
	// ErrArchiveNotFound indicates no archive exists for the epoch.
	ErrArchiveNotFound = NewDomainError("PX-ARCH-4040", "archive not found")

	// ErrArchiveExists indicates an archive for the epoch was already written.
	ErrArchiveExists = NewDomainError("PX-ARCH-4090", "archive already exists")
)

// Authentication errors.
var (
	// ErrAdminTokenMissing indicates no admin token was presented.
	ErrAdminTokenMissing = NewDomainError("PX-AUTH-4010", "admin token not provided")

	// ErrAdminTokenInvalid indicates the admin token did not match.
	ErrAdminTokenInvalid = NewDomainError("PX-AUTH-4011", "invalid admin token")

	// ErrAdminDisabled indicates no admin token hash is configured.
	ErrAdminDisabled = NewDomainError("PX-AUTH-4030", "admin interface disabled")
)

// System errors.
var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("PX-ARG-4000", "bad request")

	// ErrRouteNotFound indicates no API route matched.
	ErrRouteNotFound = NewDomainError("PX-ARG-4040", "route not found")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("PX-SYS-5000", "internal server error")

	// ErrPersistenceFailure indicates a snapshot, journal or archive write failed.
	ErrPersistenceFailure = NewDomainError("PX-SYS-5001", "persistence failure")

	// ErrServiceUnavailable indicates the coordinator is not running.
	ErrServiceUnavailable = NewDomainError("PX-SYS-5030", "service unavailable")

	// ErrRateLimited indicates too many requests.
	ErrRateLimited = NewDomainError("PX-SYS-4290", "too many requests")
)
