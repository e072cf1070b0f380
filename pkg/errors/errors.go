package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies failures so callers can decide between retry,
// redelivery and giving up
type ErrorType string

const (
	ErrorTypeRemoteTransport   ErrorType = "remote_transport"
	ErrorTypeMalformedResponse ErrorType = "malformed_response"
	ErrorTypeDownloadIO        ErrorType = "download_io"
	ErrorTypePersistence       ErrorType = "persistence"
	ErrorTypeRateLimit         ErrorType = "rate_limit"
	ErrorTypeAuth              ErrorType = "auth"
	ErrorTypeNotFound          ErrorType = "not_found"
	ErrorTypeUnknown           ErrorType = "unknown"
)

// Error carries a type, the failing operation and an optional cause
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		if e.Code != 0 {
			return fmt.Sprintf("%s: %s error (code %d): %s", e.Op, e.Type, e.Code, msg)
		}
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Type, msg)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause
func New(t ErrorType, op, message string) *Error {
	return &Error{Type: t, Op: op, Message: message}
}

// Wrap attaches a type and operation to err. A nil err yields nil.
func Wrap(t ErrorType, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Type: t, Op: op, Err: err}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err's chain contains an *Error of type t
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

// IsRetryable checks if an error type should be retried in place
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeRemoteTransport, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// IsRedeliverable reports whether a consumer failure should put the
// message back on its topic. Malformed input and auth failures will not
// succeed on another attempt.
func IsRedeliverable(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeMalformedResponse, ErrorTypeAuth, ErrorTypeNotFound:
		return false
	default:
		return true
	}
}

// TypeForStatus maps an HTTP status code onto an error type
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500 || statusCode == 0:
		return ErrorTypeRemoteTransport
	default:
		return ErrorTypeUnknown
	}
}
