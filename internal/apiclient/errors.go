package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Every error returned by Client matches exactly one of
// these with errors.Is.
var (
	ErrNetwork    = errors.New("network error")
	ErrServer     = errors.New("server error")
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication error")
	ErrNotFound   = errors.New("not found")
)

// Error describes a failed API call.
type Error struct {
	Op      string // e.g. "create story"
	Kind    error  // one of the Err* kinds
	Status  int    // HTTP status, 0 when the request did not complete
	Message string // server supplied message, if any
	Err     error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %v (%d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindForStatus classifies a non-2xx HTTP status.
func KindForStatus(status int) error {
	switch {
	case status >= 500:
		return ErrServer
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrValidation
	}
}

// StatusForError maps an error back to the HTTP status a frontend should
// answer with.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
