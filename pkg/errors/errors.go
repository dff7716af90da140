// Package errors provides custom error types for the application.
// It defines domain-specific errors with error codes for better error handling and API responses.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents application error codes
type ErrorCode string

// Error codes for different error categories
const (
	// General errors (1xxx)
	ErrCodeInternal   ErrorCode = "E1000"
	ErrCodeValidation ErrorCode = "E1001"
	ErrCodeNotFound   ErrorCode = "E1002"
	ErrCodeTimeout    ErrorCode = "E1003"
	ErrCodeCanceled   ErrorCode = "E1004"

	// Configuration errors (1xxx, startup)
	ErrCodeConfigNotFound ErrorCode = "E1005"
	ErrCodeConfigInvalid  ErrorCode = "E1006"
	ErrCodeConfigParse    ErrorCode = "E1007"

	// Provider errors (2xxx)
	ErrCodeProviderRateLimit ErrorCode = "E2001"
	ErrCodeProviderTransient ErrorCode = "E2002"
	ErrCodeProviderFatal     ErrorCode = "E2003"
	ErrCodeProviderExhausted ErrorCode = "E2004"
	ErrCodeProviderEmpty     ErrorCode = "E2005"

	// Pipeline errors (3xxx)
	ErrCodePipelineFailed  ErrorCode = "E3001"
	ErrCodeQueryGeneration ErrorCode = "E3002"
	ErrCodeRetrievalFailed ErrorCode = "E3003"
	ErrCodeRevisionFailed  ErrorCode = "E3004"

	// Report errors (4xxx)
	ErrCodeStructureParse    ErrorCode = "E4001"
	ErrCodeSectionGeneration ErrorCode = "E4002"
	ErrCodeQualityValidation ErrorCode = "E4003"
	ErrCodeReportAssembly    ErrorCode = "E4004"
)

// Exit codes for application startup failures
const (
	// ExitCodeConfigValidation indicates configuration validation failure (e.g., missing API key)
	ExitCodeConfigValidation = 2
)

// AppError represents an application-level error with code and context
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for the error
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeProviderRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeProviderTransient, ErrCodeProviderExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// Common error constructors for convenience

// ErrInternal creates an internal server error
func ErrInternal(message string, err error) *AppError {
	return Wrap(ErrCodeInternal, message, err)
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError attempts to convert an error to AppError
func AsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}

// IsCode reports whether err is an AppError with the given code
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
