// Package apperr defines the error taxonomy shared by the storefront services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindSessionExpired  Kind = "session_expired"
	KindNotFound        Kind = "not_found"
	KindExpired         Kind = "expired"
	KindMismatch        Kind = "mismatch"
	KindConflict        Kind = "conflict"
	KindDependency      Kind = "dependency_failure"
	KindUnauthorized    Kind = "unauthorized"
	KindTooManyRequests Kind = "too_many_requests"
	KindInternal        Kind = "internal"
)

// Error is a classified error carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }

// ValidationFields reports per-field validation failures.
func ValidationFields(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func SessionExpired(message string) *Error  { return New(KindSessionExpired, message) }
func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Expired(message string) *Error         { return New(KindExpired, message) }
func Mismatch(message string) *Error        { return New(KindMismatch, message) }
func Unauthorized(message string) *Error    { return New(KindUnauthorized, message) }
func TooManyRequests(message string) *Error { return New(KindTooManyRequests, message) }

func Conflict(message string, err error) *Error {
	return Wrap(KindConflict, message, err)
}

func Dependency(message string, err error) *Error {
	return Wrap(KindDependency, message, err)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "internal error", err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
