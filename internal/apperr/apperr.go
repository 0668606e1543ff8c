// Package apperr defines the error kinds surfaced to the traveler.
package apperr

import (
	"errors"
	"fmt"
)

// Kind categorizes a failure.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindGenerationFailed   Kind = "generation_failed"
	KindTransport          Kind = "transport"
	KindUnexpected         Kind = "unexpected"
)

// Sentinels for errors.Is. Any *Error matches the sentinel of its Kind.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrGenerationFailed   = &Error{Kind: KindGenerationFailed}
	ErrTransport          = &Error{Kind: KindTransport}
	ErrUnexpected         = &Error{Kind: KindUnexpected}
)

// Error is a categorized failure of a single operation.
type Error struct {
	Kind   Kind
	Op     string // login, register, generate, create, update, list, delete
	Status int    // HTTP status, 0 when no response was received
	Detail string // server-provided or validation detail
	Err    error
}

// New returns an error of the given kind for op.
func New(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Wrap returns an error of the given kind for op caused by err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Status == 0 && t.Detail == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of err, or KindUnexpected if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Message renders err for display to the traveler.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	var base string
	switch e.Kind {
	case KindValidation:
		base = "Invalid input"
	case KindInvalidCredentials:
		return "Invalid email or password"
	case KindUnauthorized:
		return "Your session has expired, please log in again"
	case KindNotFound:
		base = "Itinerary not found"
	case KindConflict:
		base = "Already exists"
	case KindGenerationFailed:
		base = "Failed to generate itinerary"
	case KindTransport:
		base = "Could not reach the server"
	default:
		base = "Request failed"
	}
	if e.Detail != "" {
		return base + ": " + e.Detail
	}
	return base
}
