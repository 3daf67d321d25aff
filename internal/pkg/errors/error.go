package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternal       = errors.New("internal server error")
	ErrRateLimited    = errors.New("too many requests")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrStaleWrite     = errors.New("stale session write")
)

// Kind classifies failures surfaced by the refresh flow.
type Kind string

const (
	KindAuth     Kind = "AuthError"
	KindConfig   Kind = "ConfigError"
	KindProtocol Kind = "ProtocolError"
	KindBackend  Kind = "BackendError"
)

// Error carries an HTTP status alongside the failure so handlers can
// propagate it verbatim.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AuthError means no usable credential was presented.
func AuthError(message string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: message, Err: ErrUnauthorized}
}

// ConfigError means the backend is missing, misconfigured or unreachable.
func ConfigError(message string, err error) *Error {
	return &Error{Kind: KindConfig, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// ProtocolError means the backend answered 2xx with an unusable body.
func ProtocolError(message string) *Error {
	return &Error{Kind: KindProtocol, Status: http.StatusInternalServerError, Message: message}
}

// BackendError propagates a non-2xx backend status and message.
func BackendError(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: KindBackend, Status: status, Message: message}
}

// As returns the typed error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// StatusOf maps an error to the HTTP status it should be answered with.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the user-facing message for err. Untyped errors map to
// their sentinel's text, or to a generic message when they carry none.
func MessageOf(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	for _, sentinel := range publicSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ErrInternal.Error()
}

var publicSentinels = []error{
	ErrUnauthorized,
	ErrSessionExpired,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidInput,
	ErrRateLimited,
	ErrStaleWrite,
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
