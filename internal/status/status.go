// Package status defines the error taxonomy every public operation of the
// service reports through. Storage and crypto failures are normalized to
// ErrInternal at the service boundary so nothing below leaks outward.
package status

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrSessionExpired = errors.New("session expired")
	ErrInternal       = errors.New("internal error")
)

// SessionExpired gets its own code so clients can distinguish "log in
// again" from a plain 401.
const CodeSessionExpired = 419

func HTTPCode(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionExpired):
		return CodeSessionExpired
	default:
		return http.StatusInternalServerError
	}
}
