package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func InvalidInputf(format string, args ...any) error {
	return NewAppError("INVALID_INPUT", fmt.Sprintf(format, args...), ErrInvalidInput)
}

func NotFoundf(format string, args ...any) error {
	return NewAppError("NOT_FOUND", fmt.Sprintf(format, args...), ErrNotFound)
}

// HTTPStatus maps an error chain onto a response status and a stable code.
func HTTPStatus(err error) (int, string) {
	var appErr *AppError
	code := ""
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, orDefault(code, "NOT_FOUND")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return http.StatusBadRequest, orDefault(code, "INVALID_INPUT")
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, orDefault(code, "CONFLICT")
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, orDefault(code, "FORBIDDEN")
	default:
		return http.StatusInternalServerError, orDefault(code, "INTERNAL")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// DatabaseError wraps a storage failure so it matches both ErrDatabase and its cause.
func DatabaseError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewAppError("DATABASE_ERROR", op, fmt.Errorf("%w: %w", ErrDatabase, err))
}
