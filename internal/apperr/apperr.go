// Package apperr defines the domain error taxonomy shared by all
// services. Every error carries a stable machine-readable kind plus an
// HTTP status classification so the boundary layers can report it
// without inspecting message text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error category.
type Kind string

const (
	KindNotFound  Kind = "ERR_NOT_FOUND"
	KindConflict  Kind = "ERR_CONFLICT"
	KindUpstream  Kind = "ERR_UPSTREAM"
	KindAuth      Kind = "ERR_AUTH"
	KindIntegrity Kind = "ERR_INTEGRITY"
)

// Error is a classified domain error.
type Error struct {
	Kind   Kind
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two classified errors by kind, so callers can write
// errors.Is(err, apperr.NotFound("")) style checks against sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// NotFound reports a referenced entity that does not exist.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Msg: msg}
}

// Conflict reports a duplicate detected at create time.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Msg: msg}
}

// Upstream reports a failed or timed-out call to an external collaborator.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Status: http.StatusBadGateway, Msg: msg, Err: err}
}

// Auth reports an invalid or expired principal token.
func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Msg: msg}
}

// Integrity reports a post-write re-fetch of an entity that should exist
// but is gone. Always fatal for the operation that hit it.
func Integrity(msg string) *Error {
	return &Error{Kind: KindIntegrity, Status: http.StatusInternalServerError, Msg: msg}
}

// StatusOf returns the HTTP status classification for err, defaulting
// to 500 for unclassified errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind for err, or empty for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
