// Package httperr is the single error type handlers return when a request
// cannot proceed. The HTTP boundary maps each Kind to a response.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates why a request stopped.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	Forbidden
	ValidationFailed
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case ValidationFailed:
		return "validation_failed"
	case NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error carries a Kind, a user-facing message and an optional cause.
//
// RedirectStatus only applies to Unauthenticated: it is the status the
// login redirect is sent with.
type Error struct {
	Kind           Kind
	Message        string
	RedirectStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the transport status for the error.
func (e *Error) Status() int {
	switch e.Kind {
	case Unauthenticated:
		if e.RedirectStatus != 0 {
			return e.RedirectStatus
		}
		return http.StatusFound
	case Forbidden:
		return http.StatusForbidden
	case ValidationFailed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// NewUnauthenticated sends the client to the login page with the given status.
// Zero means the default redirect status (302).
func NewUnauthenticated(status int) *Error {
	return &Error{Kind: Unauthenticated, Message: "Authentication required", RedirectStatus: status}
}

func NewForbidden(msg string) *Error {
	if msg == "" {
		msg = "Access Denied."
	}
	return &Error{Kind: Forbidden, Message: msg}
}

func NewNotFound(msg string, cause error) *Error {
	if msg == "" {
		msg = "Not Found"
	}
	return &Error{Kind: NotFound, Message: msg, Err: cause}
}

func NewValidation(msg string, cause error) *Error {
	return &Error{Kind: ValidationFailed, Message: msg, Err: cause}
}

// Wrap turns an arbitrary error into an Internal one; *Error values pass
// through unchanged.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var he *Error
	if errors.As(err, &he) {
		return he
	}
	return &Error{Kind: Internal, Message: http.StatusText(http.StatusInternalServerError), Err: err}
}

// KindOf reports the Kind of err, Internal for foreign errors.
func KindOf(err error) Kind {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	var he *Error
	return errors.As(err, &he) && he.Kind == k
}
