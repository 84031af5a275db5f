package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "VALIDATION"
	ErrorTypeNotFound    ErrorType = "NOT_FOUND"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
	ErrorTypeRejected    ErrorType = "REJECTED"
	ErrorTypeCancelled   ErrorType = "CANCELLED"
	ErrorTypeDeadline    ErrorType = "DEADLINE"
	ErrorTypeInternal    ErrorType = "INTERNAL"
)

// Stable machine-readable codes carried through to error responses.
const (
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeMissingCaseID       = "MISSING_CASE_ID"
	CodeCaseNotFound        = "CASE_NOT_FOUND"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamRejected    = "UPSTREAM_REJECTED"
	CodeBuildCancelled      = "BUILD_CANCELLED"
	CodeDeadlineExceeded    = "DEADLINE_EXCEEDED"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeValidationFailed,
		Message: message,
	}
}

// NewMissingCaseID creates a validation error for a case-scoped call issued
// without a case id. Never retried; the caller has a bug.
func NewMissingCaseID(message string) error {
	return &AppError{
		Type:    ErrorTypeValidation,
		Code:    CodeMissingCaseID,
		Message: message,
	}
}

// NewCaseNotFound creates a not found error for an unknown case
func NewCaseNotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeCaseNotFound,
		Message: message,
	}
}

// NewUnavailable creates an error for an upstream that cannot currently
// serve: circuit breaker open or retries exhausted
func NewUnavailable(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeUnavailable,
		Code:    CodeUpstreamUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewRejected creates an error for an upstream 4xx response
func NewRejected(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeRejected,
		Code:    CodeUpstreamRejected,
		Message: message,
		Err:     err,
	}
}

// NewBuildCancelled creates the error delivered to followers whose build
// leader was cancelled before completing
func NewBuildCancelled(message string) error {
	return &AppError{
		Type:    ErrorTypeCancelled,
		Code:    CodeBuildCancelled,
		Message: message,
	}
}

// NewDeadlineExceeded creates an error for an elapsed caller budget
func NewDeadlineExceeded(message string) error {
	return &AppError{
		Type:    ErrorTypeDeadline,
		Code:    CodeDeadlineExceeded,
		Message: message,
	}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the classification
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Code:    appErr.Code,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsUnavailable checks if an error marks an unreachable upstream
func IsUnavailable(err error) bool { return isType(err, ErrorTypeUnavailable) }

// IsRejected checks if an error is an upstream rejection
func IsRejected(err error) bool { return isType(err, ErrorTypeRejected) }

// IsCancelled checks if an error is a cancelled build
func IsCancelled(err error) bool { return isType(err, ErrorTypeCancelled) }

// IsDeadline checks if an error is an elapsed deadline
func IsDeadline(err error) bool { return isType(err, ErrorTypeDeadline) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return isType(err, ErrorTypeInternal) }

// CodeOf extracts the machine code from an error, or "" for plain errors
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
