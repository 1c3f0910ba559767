package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStorageConflict = errors.New("storage conflict")
	ErrUnavailable     = errors.New("unavailable")
)

// FieldError is a user-correctable failure scoped to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error  // kind, one of the Err* sentinels
	Message string // Human-readable, safe to return to the caller
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying infrastructure error, never shown to callers
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// FieldErrors returns the error as a field-error payload, or nil when the
// error is not tied to an input field.
func (e *AppError) FieldErrors() []FieldError {
	if e.Field == "" {
		return nil
	}
	return []FieldError{{Field: e.Field, Message: e.Message}}
}

func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on field.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "not authenticated",
	}
}

// StorageConflict marks a transient storage failure. Callers may retry.
func StorageConflict(cause error) *AppError {
	return &AppError{
		Err:     ErrStorageConflict,
		Message: "storage busy, retry the request",
		Cause:   cause,
	}
}

func Unavailable(dependency string, cause error) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: dependency + " unavailable",
		Cause:   cause,
	}
}

// Fields extracts the field errors carried by err, if any.
func Fields(err error) []FieldError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.FieldErrors()
	}
	return nil
}
