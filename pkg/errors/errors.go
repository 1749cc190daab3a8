package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound   = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrConflict   = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal   = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	ErrNoObligations        = New("NO_OBLIGATIONS", http.StatusUnprocessableEntity, "no teaching obligations exist for the department section")
	ErrNoRooms              = New("NO_ROOMS", http.StatusUnprocessableEntity, "no usable rooms exist for the department")
	ErrAlreadyExists        = New("ALREADY_EXISTS", http.StatusConflict, "an active timetable already exists for the department section")
	ErrGenerationInProgress = New("GENERATION_IN_PROGRESS", http.StatusConflict, "a generation for this department section is already running")
	ErrInfeasible           = New("INFEASIBLE", http.StatusUnprocessableEntity, "no feasible timetable exists under the configured rules")
	ErrTimedOut             = New("GENERATION_TIMEOUT", http.StatusGatewayTimeout, "generation budget exhausted before reaching a result")
	ErrInconsistent         = New("INTERNAL_INCONSISTENCY", http.StatusInternalServerError, "generated timetable failed post-generation validation")
)

// ErrCacheMiss marks a cache lookup that found nothing; callers fall back to
// the underlying source. It is deliberately not an *Error: a miss never
// reaches an HTTP response.
var ErrCacheMiss = errors.New("cache miss")

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithDetails returns a copy of the error carrying a structured detail payload.
func WithDetails(err *Error, details interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Details = details
	return &clone
}
