package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents application-specific error codes
type ErrorCode string

const (
	// Connection-time errors (fatal to the connection attempt)
	ErrCodeAuth         ErrorCode = "AUTH_ERROR"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeExpiredToken ErrorCode = "EXPIRED_TOKEN"

	// Call action errors (local to the triggering action)
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeBusy         ErrorCode = "BUSY"
	ErrCodeUnreachable  ErrorCode = "UNREACHABLE"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Transport-level errors
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured application error with code and message
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

// Error implements the error interface, returning a formatted error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Reason returns the lowercase reason string sent to clients in failure
// events (unauthorized | busy | unreachable | not-found | forbidden).
func (e *AppError) Reason() string {
	switch e.Code {
	case ErrCodeUnauthorized:
		return "unauthorized"
	case ErrCodeBusy:
		return "busy"
	case ErrCodeUnreachable:
		return "unreachable"
	case ErrCodeNotFound:
		return "not-found"
	case ErrCodeForbidden:
		return "forbidden"
	case ErrCodeAuth, ErrCodeInvalidToken, ErrCodeExpiredToken:
		return "auth-error"
	case ErrCodeValidation:
		return "invalid-payload"
	default:
		return "internal"
	}
}

// New creates a new AppError with the given code and message
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError, preserving the original error
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds additional details to an AppError for debugging
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Connection-time errors
func AuthError(message string) *AppError {
	return New(ErrCodeAuth, message)
}

func InvalidTokenError(err error) *AppError {
	return Wrap(ErrCodeInvalidToken, "Invalid credential", err)
}

func ExpiredTokenError() *AppError {
	return New(ErrCodeExpiredToken, "Credential has expired")
}

// Call action errors
func UnauthorizedError(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func BusyError(calleeID string) *AppError {
	return New(ErrCodeBusy, fmt.Sprintf("User %s is already in a call", calleeID))
}

func UnreachableError(calleeID string) *AppError {
	return New(ErrCodeUnreachable, fmt.Sprintf("User %s is offline", calleeID))
}

func CallNotFoundError(callID string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("Call %s not found", callID))
}

func ForbiddenError(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

// Transport-level errors
func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InternalError(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsCode reports whether err is an AppError with the given code
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetAppError extracts AppError from an error, wrapping non-AppErrors as InternalError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError(err.Error())
}
