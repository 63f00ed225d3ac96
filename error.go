package alarmclock

import (
	"errors"
	"fmt"
)

type errorCode string

const (
	ErrInternal    errorCode = "internal"
	ErrInvalid     errorCode = "invalid"
	ErrNotFound    errorCode = "not_found"
	ErrUnavailable errorCode = "unavailable"
)

// Error is an application error.
type Error struct {
	// Code is a machine-readable error code.
	Code errorCode

	// Description is a human-readable description of the error.
	Description string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := "alarmclock: " + string(e.Code) + ": " + e.Description
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Errorf(code errorCode, format string, args ...any) error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...)}
}

// WrapError attaches code and description to a lower-level cause.
func WrapError(code errorCode, err error, description string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Description: description, Err: err}
}

// ErrorCode returns the error code associated with err, or ErrInternal if err
// isn't an application error.
func ErrorCode(err error) errorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != "" {
		return e.Code
	}
	return ErrInternal
}

// ErrorDescription returns a human-readable description of the error, or
// "internal error" if err isn't an application error.
func ErrorDescription(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Description != "" {
		return e.Description
	}
	return "internal error"
}
