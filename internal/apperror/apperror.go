// Package apperror defines the operational error taxonomy shared by every
// layer of the service. An operational error is an anticipated, classifiable
// failure whose message is safe to show to clients; anything else is flattened
// to a generic message before it leaves the process.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for use with errors.Is().
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)

// Error carries an HTTP status code alongside a client-safe message.
type Error struct {
	Code        int
	Message     string
	Operational bool
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the envelope status string: "fail" for 4xx, "error" otherwise.
func (e *Error) Status() string {
	if e.Code >= 400 && e.Code < 500 {
		return "fail"
	}
	return "error"
}

func New(code int, message string) *Error {
	return &Error{Code: code, Message: message, Operational: true}
}

// Wrap keeps the cause attached for server-side logging while exposing only
// message to clients.
func Wrap(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Operational: true, Err: err}
}

func BadRequest(format string, args ...any) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func Unauthorized(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// Internal errors are not operational: their message is replaced by a generic
// one in production mode.
func Internal(message string, err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: message, Err: err}
}

// As unwraps err into *Error if possible.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
