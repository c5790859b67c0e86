// Package apperr defines the typed errors every manager returns and the HTTP layer renders.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindAuth       Kind = "unauthorized"
	KindUpload     Kind = "upload_failed"
	KindInternal   Kind = "internal_error"
)

// Error carries a status code and a user-facing message. Err is the cause, never rendered.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so callers can write errors.Is(err, apperr.ErrAuth).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is; they match any message of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrUpload     = &Error{Kind: KindUpload}
	ErrInternal   = &Error{Kind: KindInternal}
)

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, StatusCode: http.StatusBadRequest, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, StatusCode: http.StatusConflict, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, StatusCode: http.StatusNotFound, Message: message}
}

func Auth(message string) *Error {
	return &Error{Kind: KindAuth, StatusCode: http.StatusUnauthorized, Message: message}
}

// Upload reports an image host failure. A missing local file is the client's fault (400),
// anything the host did is ours (500).
func Upload(status int, message string, cause error) *Error {
	return &Error{Kind: KindUpload, StatusCode: status, Message: message, Err: cause}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, StatusCode: http.StatusInternalServerError, Message: message, Err: cause}
}

// From returns err as an *Error, wrapping anything untyped into a generic 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("Internal server error", err)
}
