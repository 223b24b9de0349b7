package apierr

import (
	"errors"
	"fmt"
)

// Sentinels for the engine's error taxonomy. Boundary code wraps these into
// *Error with an HTTP status; callers branch with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
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

func Invalid(code, format string, args ...interface{}) *Error {
	return &Error{Status: 400, Code: code, Err: fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)}
}

func NotFound(code, format string, args ...interface{}) *Error {
	return &Error{Status: 404, Code: code, Err: fmt.Errorf(format+": %w", append(args, ErrNotFound)...)}
}

func Conflict(code, format string, args ...interface{}) *Error {
	return &Error{Status: 409, Code: code, Err: fmt.Errorf(format+": %w", append(args, ErrConflict)...)}
}
