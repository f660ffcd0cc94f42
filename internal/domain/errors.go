package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidQuery signals malformed or untranslatable query content.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidArgument signals a structurally invalid request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotSupported signals a deliberately unimplemented request shape.
	ErrNotSupported = errors.New("not supported")
	// ErrBackend signals a failure reported by the search backend.
	ErrBackend = errors.New("backend error")
)

// Kind classifies an Error for status mapping.
type Kind string

// Error kinds.
const (
	KindInvalidQuery    Kind = "invalid_query"
	KindInvalidArgument Kind = "invalid_argument"
	KindNotSupported    Kind = "not_supported"
	KindBackend         Kind = "backend_error"
)

// Error is a classified failure carrying a client-safe message.
// Backend errors declare their own status and type. Cause is kept for logs
// and never rendered to clients.
type Error struct {
	Kind    Kind
	Type    string
	Message string
	Status  int
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the kind sentinel and the cause so callers can use errors.Is.
func (e *Error) Unwrap() []error {
	var sentinel error
	switch e.Kind {
	case KindInvalidQuery:
		sentinel = ErrInvalidQuery
	case KindInvalidArgument:
		sentinel = ErrInvalidArgument
	case KindNotSupported:
		sentinel = ErrNotSupported
	default:
		sentinel = ErrBackend
	}
	if e.Cause != nil {
		return []error{sentinel, e.Cause}
	}
	return []error{sentinel}
}

// StatusCode returns the HTTP status the error maps to.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalidQuery, KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotSupported:
		return http.StatusNotImplemented
	}
	if e.Status > 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// TypeName returns the wire error type.
func (e *Error) TypeName() string {
	if e.Type != "" {
		return e.Type
	}
	return string(e.Kind)
}

// InvalidQuery creates an invalid-query error.
func InvalidQuery(format string, args ...any) error {
	return &Error{Kind: KindInvalidQuery, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument creates an invalid-argument error.
func InvalidArgument(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// NotSupported creates a not-supported error.
func NotSupported(format string, args ...any) error {
	return &Error{Kind: KindNotSupported, Message: fmt.Sprintf(format, args...)}
}

// NewBackendError creates a backend error with its own status and wire type.
func NewBackendError(status int, errType, message string) error {
	return &Error{Kind: KindBackend, Type: errType, Message: message, Status: status}
}

// WrapBackendError creates a backend error that keeps its cause.
func WrapBackendError(status int, errType, message string, cause error) error {
	return &Error{Kind: KindBackend, Type: errType, Message: message, Status: status, Cause: cause}
}

// AsError extracts a classified error. Unclassified errors become opaque
// backend errors with status 500 and a generic message.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindBackend, Message: "internal error", Status: http.StatusInternalServerError}
}
