// Package apperror defines the single error currency shared by the user domain,
// its repositories and the HTTP handlers.
//
// Every error crossing the repository or handler boundary is an *Error of one
// of a closed set of kinds. Callers branch on the kind with errors.Is against
// the exported sentinels or with KindOf.
package apperror

import (
	"errors"
	"fmt"
)

// Kind enumerates the error categories understood by the service.
type Kind int

const (
	// KindApplication is the catch-all for validation and infrastructure
	// failures that carry a human-readable detail.
	KindApplication Kind = iota
	// KindUserAlreadyExists reports a registration for an email that is taken.
	KindUserAlreadyExists
	// KindUserDoesNotExist reports a lookup that matched nothing.
	KindUserDoesNotExist
	// KindIncorrectPassword reports a failed credential check.
	KindIncorrectPassword
	// KindDatabase reports a storage failure; the detail is for logs only.
	KindDatabase
)

func (k Kind) String() string {
	switch k {
	case KindUserAlreadyExists:
		return "USER_ALREADY_EXISTS"
	case KindUserDoesNotExist:
		return "USER_DOES_NOT_EXIST"
	case KindIncorrectPassword:
		return "INCORRECT_PASSWORD"
	case KindDatabase:
		return "DATABASE_ERROR"
	default:
		return "APPLICATION_ERROR"
	}
}

// Sentinels usable with errors.Is. A sentinel matches every *Error of the
// same kind regardless of detail.
var (
	ErrUserAlreadyExists = &Error{kind: KindUserAlreadyExists}
	ErrUserDoesNotExist  = &Error{kind: KindUserDoesNotExist}
	ErrIncorrectPassword = &Error{kind: KindIncorrectPassword}
	ErrDatabase          = &Error{kind: KindDatabase}
	ErrApplication       = &Error{kind: KindApplication}
)

// ErrValidation marks application errors caused by caller input (bad email,
// weak password). Those are safe to echo back to the client.
var ErrValidation = errors.New("validation failed")

// Error is a kind plus an optional detail and wrapped cause.
type Error struct {
	kind   Kind
	detail string
	err    error
}

// Database builds a KindDatabase error wrapping the driver cause.
func Database(err error, format string, args ...any) *Error {
	return &Error{kind: KindDatabase, detail: fmt.Sprintf(format, args...), err: err}
}

// Application builds a KindApplication error with the given detail.
func Application(format string, args ...any) *Error {
	return &Error{kind: KindApplication, detail: fmt.Sprintf(format, args...)}
}

// Validation builds a KindApplication error that also matches ErrValidation.
func Validation(detail string) *Error {
	return &Error{kind: KindApplication, detail: detail, err: ErrValidation}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	switch e.kind {
	case KindUserAlreadyExists:
		msg = "user already exists"
	case KindUserDoesNotExist:
		msg = "user does not exist"
	case KindIncorrectPassword:
		msg = "the provided password is incorrect"
	case KindDatabase:
		msg = "error interacting with database"
	default:
		msg = "unexpected application error"
	}
	if e.detail != "" {
		msg += ": " + e.detail
	}
	if e.err != nil && !errors.Is(e.err, ErrValidation) {
		msg += ": " + e.err.Error()
	}

	return msg
}

// Kind returns the error category.
func (e *Error) Kind() Kind { return e.kind }

// Detail returns the message attached at construction, possibly empty.
func (e *Error) Detail() string { return e.detail }

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is matches sentinels by kind. Non-sentinel targets fall through to the
// default identity comparison and the wrapped chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}

	return t.detail == "" && t.err == nil && t.kind == e.kind
}

// KindOf classifies err. Errors that are not *Error count as KindApplication.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.kind
	}

	return KindApplication
}
