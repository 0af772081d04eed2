// Package httperr defines the typed errors handlers raise. Every error
// carries the HTTP status it should be rendered with; anything that is not
// an *httperr.Error is treated as an internal failure and collapsed to a
// generic 500 so database details never reach clients.
package httperr

import (
	"errors"
	"net/http"
)

// Error is an HTTP-renderable error.
type Error struct {
	Status  int
	Message string
	// Err is the underlying cause, logged but never sent to the client.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error with an explicit status.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// BadRequest is a 400 validation error.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// Unauthorized is a 401 authentication error.
func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message)
}

// Forbidden is a 403 authorization error.
func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message)
}

// NotFound is a 404 error.
func NotFound(message string) *Error {
	return New(http.StatusNotFound, message)
}

// Conflict is a 409 error for uniqueness violations.
func Conflict(message string) *Error {
	return New(http.StatusConflict, message)
}

// TooManyRequests is a 429 rate-limit error.
func TooManyRequests(message string) *Error {
	return New(http.StatusTooManyRequests, message)
}

// Internal wraps an unexpected failure. The cause is kept for logging; the
// client only ever sees the generic message.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: "Something went wrong", Err: err}
}

// From extracts an *Error from err, converting unknown errors to Internal.
func From(err error) *Error {
	var he *Error
	if errors.As(err, &he) {
		return he
	}
	return Internal(err)
}
