// Package apperr provides typed domain errors. Services return these and the
// HTTP layer maps each Kind to a status code, so callers always receive a
// definite, machine-readable outcome.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes a domain error for HTTP mapping.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindInternal
)

// Error is a domain error carrying a Kind and optional structured details.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As on the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for this error's kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// WithDetails attaches response details and returns the error.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a typed error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }
func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func BadRequest(message string) *Error { return New(KindBadRequest, message) }
func Internal(message string) *Error   { return New(KindInternal, message) }

// Persistence wraps a storage failure as an internal error.
func Persistence(op string, err error) *Error {
	return Wrap(KindInternal, op, err)
}

// GetKind extracts the Kind from an error, or KindUnknown for untyped errors.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is a typed error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
