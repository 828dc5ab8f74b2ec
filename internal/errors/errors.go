// Package errors provides standardized domain errors with codes for Lumina.
//
// Usage:
//
//	// In services - return typed errors
//	if book == nil {
//	    return errors.NotFoundf("book %s not found", id)
//	}
//
//	// In handlers - check with errors.Is
//	if errors.Is(err, errors.ErrSurfaceTimeout) {
//	    response.GatewayTimeout(w, err.Error(), logger)
//	    return
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeInvalidArchive:
//	        response.BadRequest(w, domainErr.Message, logger)
//	    case errors.CodeByteFetchFailed:
//	        response.NotFound(w, domainErr.Message, logger)
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeValidation    Code = "VALIDATION"
	CodeConflict      Code = "CONFLICT"
	CodeInternal      Code = "INTERNAL"

	// Reader session failure taxonomy.
	CodeByteFetchFailed     Code = "BYTE_FETCH_FAILED"
	CodeInvalidArchive      Code = "INVALID_ARCHIVE"
	CodeEngineReadyTimeout  Code = "ENGINE_READY_TIMEOUT"
	CodeSurfaceTimeout      Code = "SURFACE_TIMEOUT"
	CodeInvalidPosition     Code = "INVALID_POSITION"
	CodeEngineOperationFail Code = "ENGINE_OPERATION_FAILED"
	CodeSearchFailed        Code = "SEARCH_FAILED"
	CodeSessionSuperseded   Code = "SESSION_SUPERSEDED"
	CodeNoActiveBook        Code = "NO_ACTIVE_BOOK"
	CodeCollectionProtected Code = "COLLECTION_PROTECTED"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeByteFetchFailed, CodeNoActiveBook:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeInvalidPosition, CodeSessionSuperseded:
		return http.StatusConflict
	case CodeValidation, CodeInvalidArchive:
		return http.StatusBadRequest
	case CodeEngineReadyTimeout, CodeSurfaceTimeout:
		return http.StatusGatewayTimeout
	case CodeCollectionProtected:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists       = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation          = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict            = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal error"}
	ErrByteFetchFailed     = &Error{Code: CodeByteFetchFailed, Message: "book archive unavailable"}
	ErrInvalidArchive      = &Error{Code: CodeInvalidArchive, Message: "not a valid EPUB archive"}
	ErrEngineReadyTimeout  = &Error{Code: CodeEngineReadyTimeout, Message: "rendering engine never became ready"}
	ErrSurfaceTimeout      = &Error{Code: CodeSurfaceTimeout, Message: "display surface never became ready"}
	ErrInvalidPosition     = &Error{Code: CodeInvalidPosition, Message: "engine cannot report a position"}
	ErrEngineOperation     = &Error{Code: CodeEngineOperationFail, Message: "engine operation failed"}
	ErrSearchFailed        = &Error{Code: CodeSearchFailed, Message: "search failed"}
	ErrSessionSuperseded   = &Error{Code: CodeSessionSuperseded, Message: "superseded by a newer open request"}
	ErrNoActiveBook        = &Error{Code: CodeNoActiveBook, Message: "no book is open"}
	ErrCollectionProtected = &Error{Code: CodeCollectionProtected, Message: "collection cannot be deleted"}
)

// Constructor functions for creating errors with custom messages.

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// AlreadyExistsf creates an already exists error with formatted message.
func AlreadyExistsf(format string, args ...any) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// ByteFetchFailed creates a byte fetch failure.
func ByteFetchFailed(msg string) *Error {
	return &Error{Code: CodeByteFetchFailed, Message: msg}
}

// ByteFetchFailedf creates a byte fetch failure with formatted message.
func ByteFetchFailedf(format string, args ...any) *Error {
	return &Error{Code: CodeByteFetchFailed, Message: fmt.Sprintf(format, args...)}
}

// InvalidArchive creates an invalid archive error.
func InvalidArchive(msg string) *Error {
	return &Error{Code: CodeInvalidArchive, Message: msg}
}

// InvalidArchivef creates an invalid archive error with formatted message.
func InvalidArchivef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArchive, Message: fmt.Sprintf(format, args...)}
}

// EngineReadyTimeout creates an engine readiness timeout error.
func EngineReadyTimeout(msg string) *Error {
	return &Error{Code: CodeEngineReadyTimeout, Message: msg}
}

// SurfaceTimeout creates a display surface timeout error.
func SurfaceTimeout(msg string) *Error {
	return &Error{Code: CodeSurfaceTimeout, Message: msg}
}

// InvalidPosition creates an invalid position error.
func InvalidPosition(msg string) *Error {
	return &Error{Code: CodeInvalidPosition, Message: msg}
}

// EngineOperation creates an engine operation failure.
func EngineOperation(msg string) *Error {
	return &Error{Code: CodeEngineOperationFail, Message: msg}
}

// EngineOperationf creates an engine operation failure with formatted message.
func EngineOperationf(format string, args ...any) *Error {
	return &Error{Code: CodeEngineOperationFail, Message: fmt.Sprintf(format, args...)}
}

// SearchFailed creates a search failure.
func SearchFailed(msg string) *Error {
	return &Error{Code: CodeSearchFailed, Message: msg}
}

// SessionSuperseded signals that a newer open request took over the session.
func SessionSuperseded(msg string) *Error {
	return &Error{Code: CodeSessionSuperseded, Message: msg}
}

// NoActiveBook signals an operation that needs an open book.
func NoActiveBook(msg string) *Error {
	return &Error{Code: CodeNoActiveBook, Message: msg}
}

// CollectionProtected creates a protected collection error.
func CollectionProtected(msg string) *Error {
	return &Error{Code: CodeCollectionProtected, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
