package handlers

import (
	"context"
	"errors"
	"math"
	"net/http"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/sessions"
	"github.com/taigabridge/taigabridge/internal/taiga"
	"github.com/taigabridge/taigabridge/pkg/httpx"
)

// SessionManager is the slice of sessions.Manager the handlers consume.
type SessionManager interface {
	Login(ctx context.Context, host, username, password string) (string, error)
	Validate(sessionID string) (taiga.API, error)
	Logout(sessionID string)
	Status(sessionID string) (sessions.Session, error)
	Stats() sessions.Stats
}

// sessionHeader carries the session identifier on every non-login call.
const sessionHeader = "X-Session-ID"

// sessionFrom extracts the session identifier from a request.
func sessionFrom(r *http.Request) string {
	return r.Header.Get(sessionHeader)
}

// writeDomainError maps the bridge's error taxonomy onto HTTP statuses. No
// backend exception detail crosses this boundary raw.
func writeDomainError(w http.ResponseWriter, err error) {
	var locked *models.LockedError
	switch {
	case errors.As(err, &locked):
		retryAfter := int(math.Ceil(locked.RetryAfter.Seconds()))
		httpx.WriteTooManyRequests(w, retryAfter, "Too many failed login attempts")
	case errors.Is(err, models.ErrAuthFailed):
		// Generic rejection: no detail that would allow username
		// enumeration.
		httpx.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrUnauthorized):
		httpx.WriteUnauthorized(w, "Invalid or expired session, please login again")
	case errors.Is(err, models.ErrForbidden):
		httpx.WriteForbidden(w, "Operation not permitted")
	case errors.Is(err, models.ErrNotFound):
		httpx.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrBadRequest):
		httpx.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrTimeout):
		httpx.WriteGatewayTimeout(w, "Backend request timed out")
	case errors.Is(err, models.ErrBackend):
		httpx.WriteBadGateway(w, "Backend request failed")
	default:
		httpx.WriteInternalError(w, "Internal server error")
	}
}
