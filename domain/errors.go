package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalid       ErrorCode = "INVALID"
	ErrCodeUnprocessable ErrorCode = "UNPROCESSABLE"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal      ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrValidation is wrapped by every value object construction failure.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...interface{}) *Error {
	return WrapError(ErrCodeInvalid, fmt.Sprintf(format, args...), ErrValidation)
}

// Common domain errors.
var (
	ErrUserNotFound       = NewError(ErrCodeNotFound, "user not found")
	ErrPetNotFound        = NewError(ErrCodeNotFound, "pet not found")
	ErrPetUserNotFound    = NewError(ErrCodeNotFound, "owner (pets user) not found")
	ErrSessionNotFound    = NewError(ErrCodeNotFound, "session not found")
	ErrUserAlreadyExists  = NewError(ErrCodeConflict, "user already exists")
	ErrPetAlreadyExists   = NewError(ErrCodeConflict, "pet already exists")
	ErrUnauthorized       = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrForbidden          = NewError(ErrCodeForbidden, "forbidden")
	ErrInvalidCredentials = NewError(ErrCodeUnauthorized, "invalid username or password")
	ErrInvalidPayload     = NewError(ErrCodeInvalid, "invalid payload")

	// Guard failures of the pet state machine.
	ErrLowStamina = NewError(ErrCodeUnprocessable, "pet stamina is too low to play")
	ErrTooHungry  = NewError(ErrCodeUnprocessable, "pet is too hungry to play")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
