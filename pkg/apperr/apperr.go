// Package apperr defines the error taxonomy shared by services and handlers.
// Every service-level failure is classified into one of the kinds below so
// that the HTTP layer can map it to a status code without inspecting message
// strings.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindConflict
	KindValidation
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports a missing entity.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden reports an authenticated but disallowed request.
func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Conflict reports a uniqueness or referential-integrity violation.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Validation reports malformed or semantically invalid input.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
