// Package apperr defines the status-tagged errors shared by the publish and
// launch pipelines. Each validation gate returns one of these instead of
// raising; the HTTP boundary maps them to a response with StatusOf/CodeOf.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status  int
	Code    string
	Message string
	Err     error // wrapped cause, never shown to the caller
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Wrap keeps the cause for logs while the boundary shows only Message.
func Wrap(status int, code, message string, err error) *Error {
	return &Error{Status: status, Code: code, Message: message, Err: err}
}

func Unauthenticated(message string) *Error {
	return New(http.StatusUnauthorized, "unauthenticated", message)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, "forbidden", message)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, "not_found", message)
}

func Invalid(message string) *Error {
	return New(http.StatusBadRequest, "invalid_request", message)
}

// BadSignature covers both a failed verification and an unknown consumer key.
// The two cases are deliberately indistinguishable to the caller.
func BadSignature() *Error {
	return New(http.StatusUnauthorized, "invalid_signature", "launch could not be authenticated")
}

func Upstream(message string, err error) *Error {
	return Wrap(http.StatusBadGateway, "upstream_error", message, err)
}

// StatusOf returns the HTTP status carried by err, or 500 for untagged errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the machine code carried by err, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// MessageOf returns the caller-safe message for err. Untagged errors get a
// generic message so internals never leak to the LMS side.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
