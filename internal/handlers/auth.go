package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/taigabridge/taigabridge/pkg/httpx"
	"github.com/taigabridge/taigabridge/pkg/logger"
)

// AuthHandler serves the login, logout, and session status endpoints.
type AuthHandler struct {
	manager SessionManager
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(manager SessionManager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		manager: manager,
		logger:  log,
	}
}

// LoginRequest carries the ephemeral credentials. They are consumed by the
// single login call and never echoed, logged, or stored.
type LoginRequest struct {
	Host     string `json:"host" validate:"required,url"`
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the opaque session identifier.
type LoginResponse struct {
	SessionID string `json:"session_id"`
}

// LogoutRequest identifies the session to terminate.
type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

// LogoutResponse confirms termination. Logout is idempotent, so the status
// is the same whether or not the session still existed.
type LogoutResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// SessionStatusResponse describes a live session.
type SessionStatusResponse struct {
	Status                 string `json:"status"`
	Username               string `json:"username,omitempty"`
	Host                   string `json:"host,omitempty"`
	CreatedAt              string `json:"created_at,omitempty"`
	LastAccessed           string `json:"last_accessed,omitempty"`
	ExpiresAt              string `json:"expires_at,omitempty"`
	TimeUntilExpirySeconds int    `json:"time_until_expiry_seconds,omitempty"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateRequest(&req); err != nil {
		httpx.WriteBadRequest(w, err.Error())
		return
	}

	h.logger.Info("login attempt",
		slog.String("host", logger.SanitizeURL(req.Host)),
		slog.String("username", req.Username),
		slog.String("password", logger.SanitizePassword(req.Password)))

	sessionID, err := h.manager.Login(r.Context(), req.Host, req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{SessionID: sessionID})
}

// Logout handles POST /auth/logout. The session identifier comes from the
// body or, failing that, the session header.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.SessionID == "" {
		req.SessionID = sessionFrom(r)
	}
	if req.SessionID == "" {
		httpx.WriteBadRequest(w, "session_id is required")
		return
	}

	h.manager.Logout(req.SessionID)
	httpx.WriteJSON(w, http.StatusOK, LogoutResponse{
		Status:    "logged_out",
		SessionID: req.SessionID,
	})
}

// SessionStatus handles GET /auth/session. Beyond the store lookup it also
// confirms the backend still honors the session's token.
func (h *AuthHandler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFrom(r)
	if sessionID == "" {
		httpx.WriteBadRequest(w, sessionHeader+" header is required")
		return
	}

	info, err := h.manager.Status(sessionID)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, SessionStatusResponse{Status: "inactive"})
		return
	}

	client, err := h.manager.Validate(sessionID)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, SessionStatusResponse{Status: "inactive"})
		return
	}

	username := info.Identity.Username
	if me, err := client.Me(r.Context()); err == nil {
		if name, ok := me["username"].(string); ok && name != "" {
			username = name
		}
	} else {
		h.logger.Warn("backend rejected session token",
			slog.String("session_id", logger.TruncateSessionID(sessionID)))
		h.manager.Logout(sessionID)
		httpx.WriteJSON(w, http.StatusOK, SessionStatusResponse{Status: "inactive"})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, SessionStatusResponse{
		Status:                 "active",
		Username:               username,
		Host:                   logger.SanitizeURL(info.Identity.Host),
		CreatedAt:              info.CreatedAt.UTC().Format(time.RFC3339),
		LastAccessed:           info.LastAccessed.UTC().Format(time.RFC3339),
		ExpiresAt:              info.ExpiresAt.UTC().Format(time.RFC3339),
		TimeUntilExpirySeconds: int(time.Until(info.ExpiresAt).Seconds()),
	})
}
