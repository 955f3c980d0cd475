// Package apperr defines the typed errors crossing every resolver boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind discriminates failures so callers can branch without matching on
// message text.
type Kind string

const (
	// KindValidation marks a caller mistake (bad pair, bad date range).
	KindValidation Kind = "validation"
	// KindNotFound marks a request for which no rate could be resolved.
	KindNotFound Kind = "not_found"
	// KindUpstream marks a transport or parse failure from the rate source.
	KindUpstream Kind = "upstream"
)

// Error carries a kind, a human-readable message and an optional cause.
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

// Validation builds a KindValidation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Upstream builds a KindUpstream error wrapping the underlying cause.
func Upstream(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or the empty kind for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
