package ai

import (
	"errors"
	"fmt"
)

// ErrorType classifies backend failures. Callers branch on the type, never
// on error strings.
type ErrorType int8

const (
	// ErrorTypeUnavailable represents network failures, backend-reported
	// job failures and 5xx responses.
	ErrorTypeUnavailable ErrorType = iota
	// ErrorTypeTimeout represents a polling attempt ceiling or request
	// deadline being exceeded.
	ErrorTypeTimeout
	// ErrorTypeMalformed represents a response whose payload could not be
	// parsed into the expected shape.
	ErrorTypeMalformed
	// ErrorTypeEmpty represents an HTTP success with no content.
	ErrorTypeEmpty
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeMalformed:
		return "malformed"
	case ErrorTypeEmpty:
		return "empty"
	default:
		return "invalid"
	}
}

// Error is the single failure shape all providers return. Usage carries any
// tokens consumed before the failure so callers can still account for cost.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
	Usage   Usage
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai %s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("ai %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error wrapping an underlying cause.
func NewError(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// Errorf creates a classified error with a formatted message.
func Errorf(t ErrorType, format string, args ...any) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// TypeOf returns the classification of err, or ErrorTypeUnavailable for
// errors that did not originate from a provider.
func TypeOf(err error) ErrorType {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Type
	}
	return ErrorTypeUnavailable
}

// UsageOf returns any usage recorded on a failed call.
func UsageOf(err error) Usage {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Usage
	}
	return Usage{}
}

// IsTimeout reports whether err is a polling or deadline timeout.
func IsTimeout(err error) bool {
	return TypeOf(err) == ErrorTypeTimeout
}
