// Package apperrors defines the error kinds surfaced by the user service.
// Callers match them with errors.Is against the sentinels or classify an
// arbitrary error chain with KindOf.
package apperrors

import (
	"errors"
)

// Kind classifies a failure for the transport layer.
type Kind string

const (
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindInvalidCredential Kind = "invalid_credential"
	KindInvalidInput      Kind = "invalid_input"
	KindInternal          Kind = "internal"
)

var (
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential, Message: "invalid credential"}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInternal          = &Error{Kind: KindInternal, Message: "internal error"}
)

// Error is a classified failure with a message safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
}

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Expected reports whether err is a client-caused failure rather than a
// fault in the service or its collaborators.
func Expected(err error) bool {
	return err != nil && KindOf(err) != KindInternal
}

// Message returns the client-facing message for err. Internal errors never
// expose their cause.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return "Internal server error"
	}
	return e.Message
}
