package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the different failure classes of a run
type ErrorType string

const (
	ErrorTypeLoginTimeout       ErrorType = "login_timeout"
	ErrorTypeLoginRequired      ErrorType = "login_required"
	ErrorTypePublishStepTimeout ErrorType = "publish_step_timeout"
	ErrorTypePublishStep        ErrorType = "publish_step"
	ErrorTypeCredentialIO       ErrorType = "credential_io"
	ErrorTypeInvalidRequest     ErrorType = "invalid_request"
	ErrorTypeContentGeneration  ErrorType = "content_generation"
	ErrorTypeDownload           ErrorType = "download"
	ErrorTypeNetwork            ErrorType = "network"
	ErrorTypeRateLimit          ErrorType = "rate_limit"
	ErrorTypeAuth               ErrorType = "auth"
	ErrorTypeParsing            ErrorType = "parsing"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeServerError        ErrorType = "server_error"
	ErrorTypeUnknown            ErrorType = "unknown"
)

// Error is a typed failure. Step is only meaningful for publish errors and
// Code only for HTTP errors.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Step    int
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Type)
	switch {
	case e.Step > 0:
		msg = fmt.Sprintf("%s (step %d): %s", e.Type, e.Step, e.Message)
	case e.Code != 0:
		msg = fmt.Sprintf("%s (code %d): %s", e.Type, e.Code, e.Message)
	case e.Message != "":
		msg = fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same type, so errors.Is(err,
// &Error{Type: ErrorTypeLoginTimeout}) works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Step == 0 || t.Step == e.Step)
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errorType ErrorType, err error, message string) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// LoginTimeout reports a login wait that exceeded its bound
func LoginTimeout(stage string, err error) *Error {
	return &Error{Type: ErrorTypeLoginTimeout, Message: stage, Err: err}
}

// LoginRequired reports a session that needs a QR scan nobody can see
func LoginRequired(message string) *Error {
	return &Error{Type: ErrorTypeLoginRequired, Message: message}
}

// PublishStepTimeout reports a publish wait that exceeded its bound at step
func PublishStepTimeout(step int, name string, err error) *Error {
	return &Error{Type: ErrorTypePublishStepTimeout, Step: step, Message: name, Err: err}
}

// PublishStep reports a non-timeout failure inside a publish step
func PublishStep(step int, name string, err error) *Error {
	return &Error{Type: ErrorTypePublishStep, Step: step, Message: name, Err: err}
}

// InvalidRequest reports a publish request rejected before any browser work
func InvalidRequest(message string) *Error {
	return &Error{Type: ErrorTypeInvalidRequest, Message: message}
}

// CredentialIO reports a credential store read or write failure
func CredentialIO(op string, err error) *Error {
	return &Error{Type: ErrorTypeCredentialIO, Message: op, Err: err}
}

// ContentGeneration reports an upstream producer failure
func ContentGeneration(message string, err error) *Error {
	return &Error{Type: ErrorTypeContentGeneration, Message: message, Err: err}
}

// TypeOf returns the ErrorType of the first *Error in the chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// StepOf returns the publish step carried by err, or 0
func StepOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Step
	}
	return 0
}

// IsType reports whether err carries the given type
func IsType(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsRetryable checks if an error type should be retried. Browser flow
// failures are never retried automatically.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// TypeForStatus classifies an HTTP status code
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}
