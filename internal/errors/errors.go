package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gouq/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code is inherited from an
// AppError cause, derived from a domain sentinel, or INTERNAL_ERROR otherwise.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the outermost AppError code, a code derived from the domain
// error taxonomy, or UNKNOWN.
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case err == nil:
		return "UNKNOWN"
	case core.IsInvalidConfigError(err):
		return CodeInvalidInput
	case core.IsNumericalError(err):
		return CodeNumerical
	case core.IsUnsupportedError(err):
		return CodeUnsupported
	case core.IsNotFoundError(err):
		return CodeNotFound
	}
	return CodeInternalError
}

// HTTPStatus maps an error code to the status the API responds with.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput, CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNumerical, CodeUnsupported:
		return http.StatusUnprocessableEntity
	case CodeBusy:
		return http.StatusTooManyRequests
	case CodeDatabaseError, CodeExportFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Predefined error codes
const (
	CodeConfigInvalid   = "CONFIG_INVALID"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNumerical       = "NUMERICAL_FAILURE"
	CodeUnsupported     = "UNSUPPORTED"
	CodeSamplingFailed  = "SAMPLING_FAILED"
	CodeExportFailed    = "EXPORT_FAILED"
	CodeBusy            = "BUSY"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// SamplingFailed keeps the cause's domain code visible through Unwrap.
func SamplingFailed(cause error) *AppError {
	return &AppError{Code: CodeSamplingFailed, Message: "posterior sampling failed", Cause: cause}
}

func ExportFailed(format string, cause error) *AppError {
	return &AppError{Code: CodeExportFailed, Message: fmt.Sprintf("%s export failed", format), Cause: cause}
}

func Busy(message string) *AppError {
	return New(CodeBusy, message)
}
