// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across api/store layers.
var (
	// ErrUnauthorized indicates the backend answered 401 (no or expired session).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the backend answered 403 (authenticated but not allowed).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRejected indicates any other non-success response (business rejection, e.g. out of stock).
	ErrRejected = errors.New("rejected by server")

	// ErrTransport indicates the request never produced a usable response
	// (network unreachable, timeout, malformed body).
	ErrTransport = errors.New("transport failure")

	// ErrValidation indicates input was refused client-side, before any request was sent.
	ErrValidation = errors.New("validation")

	// ErrClosed indicates the store was detached and no longer accepts results.
	ErrClosed = errors.New("store closed")
)

// messenger is implemented by errors that carry a user-facing message.
type messenger interface {
	UserMessage() string
}

// Message extracts the user-facing message from err, if any.
// Transport failures carry none and return "".
func Message(err error) string {
	var m messenger
	if errors.As(err, &m) {
		return m.UserMessage()
	}
	return ""
}

// MessageOr returns Message(err) or def when empty.
func MessageOr(err error, def string) string {
	if msg := Message(err); msg != "" {
		return msg
	}
	return def
}

// IsAuthorization reports whether err is a 401/403 from a protected endpoint.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// ValidationError is a client-side refusal with a message suitable for display.
type ValidationError struct {
	Field string
	Msg   string
}

// Validation builds a ValidationError for field.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return "validation: " + e.Field + ": " + e.Msg
}

// UserMessage implements messenger.
func (e *ValidationError) UserMessage() string { return e.Msg }

// Unwrap makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// defaulted attaches a fallback display message to err.
type defaulted struct {
	err error
	def string
}

// WithDefault wraps err so Message returns the server message when present and def otherwise.
// A nil err stays nil.
func WithDefault(err error, def string) error {
	if err == nil {
		return nil
	}
	return &defaulted{err: err, def: def}
}

func (d *defaulted) Error() string { return d.err.Error() }

func (d *defaulted) Unwrap() error { return d.err }

// UserMessage implements messenger.
func (d *defaulted) UserMessage() string {
	var m messenger
	if errors.As(d.err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return d.def
}
