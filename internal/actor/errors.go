package actor

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstreamFetch   = errors.New("upstream fetch failed")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Error carries a client-facing message tagged with one of the kinds above.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Validationf builds an ErrValidation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds an ErrNotFound error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds an ErrConflict error.
func Conflictf(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// Upstream wraps a fetch or parse failure of the provider document.
func Upstream(msg string, err error) error {
	return &Error{Kind: ErrUpstreamFetch, Message: msg, Err: err}
}

// ActorNotFound is the canonical not-found error for an identifier.
func ActorNotFound(id int) error {
	return NotFoundf("Actor with ID %d not found.", id)
}

// RankTaken is the canonical conflict error for a rank collision.
func RankTaken(rank int) error {
	return Conflictf("An actor with rank %d already exists.", rank)
}

// Message returns the client-facing message of err, or "" when err is not an *Error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
