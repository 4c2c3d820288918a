package common

import (
	"errors"
	"net/http"
)

// AppError is an error that already knows its HTTP rendering.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails returns a copy of e carrying details in the error envelope.
func (e *AppError) WithDetails(details any) *AppError {
	out := *e
	out.Details = details
	return &out
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Unauthorized is a 401 AppError.
func Unauthorized(code, message string, err error) *AppError {
	if code == "" {
		code = "UNAUTHORIZED"
	}
	return NewAppError(code, message, http.StatusUnauthorized, err)
}

// WriteAppError renders err when it wraps an AppError and reports whether it
// did. A missing status renders as 400, a missing code as BAD_REQUEST.
func WriteAppError(w http.ResponseWriter, err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	status, code := appErr.HTTPStatus, appErr.Code
	if status == 0 {
		status = http.StatusBadRequest
	}
	if code == "" {
		code = "BAD_REQUEST"
	}
	JSONError(w, status, code, appErr.Message, appErr.Details)
	return true
}
