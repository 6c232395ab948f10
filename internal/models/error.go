package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure conditions
var (
	ErrAuthFailed     = errors.New("authentication rejected by backend")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrBackend        = errors.New("backend error")
	ErrTimeout        = errors.New("backend request timed out")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Session store errors. The session manager collapses both into
	// ErrUnauthorized so callers cannot distinguish a session that never
	// existed from one that expired.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	ErrLocked = errors.New("too many failed login attempts")
)

// LockedError reports how long an identity remains locked out.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed login attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedError) Unwrap() error { return ErrLocked }
