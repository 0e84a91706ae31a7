// Package apperr defines the error kinds shared by the store, the services
// and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare kind sentinel (no message, no cause) by kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrInternal     = &Error{Kind: KindInternal}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error { return newf(KindConflict, format, args...) }
func Forbidden(format string, args ...any) *Error {
	return newf(KindForbidden, format, args...)
}
func InvalidState(format string, args ...any) *Error {
	return newf(KindInvalidState, format, args...)
}
func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

// Wrap attaches a kind and message to a lower-level cause.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var defaultMessages = map[Kind]string{
	KindNotFound:     "not found",
	KindConflict:     "conflict",
	KindForbidden:    "forbidden",
	KindInvalidState: "invalid state",
	KindValidation:   "invalid input",
	KindInternal:     "internal error",
}

// MessageOf returns the message safe to show a client. Internal errors never
// leak their cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal && e.Message != "" {
		return e.Message
	}
	return defaultMessages[KindOf(err)]
}
