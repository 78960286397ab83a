// Package apierr carries an HTTP status and a stable error code alongside
// an underlying error so handlers can map failures in one place.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error { return New(http.StatusBadRequest, code, err) }
func NotFound(code string) *Error             { return New(http.StatusNotFound, code, nil) }
func Forbidden() *Error                       { return New(http.StatusForbidden, "forbidden", nil) }
func Unauthorized() *Error                    { return New(http.StatusUnauthorized, "unauthorized", nil) }

// As unwraps err to an *Error. Anything else becomes a 500 "internal" error
// wrapping err.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal", err)
}
