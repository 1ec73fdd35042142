package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing the HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// PermissionDeniedError indicates the acting user lacks the required
	// permission level on a document
	PermissionDeniedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string         { return e.Message }
func (e *ValidationError) Error() string       { return e.Message }
func (e *UnauthorizedError) Error() string     { return e.Message }
func (e *PermissionDeniedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int         { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int       { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int     { return http.StatusUnauthorized }
func (e *PermissionDeniedError) StatusCode() int { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool         { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool       { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool     { return target == ErrUnauthorized }
func (e *PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("already exists")

	// Sharing-specific failures. Both are expected, recoverable and
	// user-facing; neither leaves a partial mutation behind.
	ErrAlreadyShared       = errors.New("document already shared with this user")
	ErrCannotShareWithSelf = errors.New("cannot share a document with yourself")

	// Transport/backend failures
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("timed out")
)

// AlreadySharedError carries the existing share key for a duplicate grant.
type AlreadySharedError struct {
	Key string // canonical share key already present in the ACL
}

func (e *AlreadySharedError) Error() string {
	return "document already shared with " + e.Key
}

func (e *AlreadySharedError) StatusCode() int { return http.StatusConflict }

func (e *AlreadySharedError) Is(target error) bool {
	return target == ErrAlreadyShared || target == ErrConflict
}
