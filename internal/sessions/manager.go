package sessions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/taiga"
	"github.com/taigabridge/taigabridge/pkg/logger"
)

// Authenticator is the slice of the backend gateway the manager needs.
type Authenticator interface {
	Authenticate(ctx context.Context, host, username, password string) (taiga.API, error)
}

// Manager orchestrates login, validation, and logout over the session store,
// the rate limiter, and the backend gateway.
type Manager struct {
	store   *Store
	limiter *Limiter
	backend Authenticator
	logger  *slog.Logger
	audit   *logger.AuditLogger
}

// Stats reports the counts a surrounding status endpoint may expose.
type Stats struct {
	ActiveSessions   int `json:"active_sessions"`
	LockedIdentities int `json:"locked_identities"`
}

// NewManager creates a session manager.
func NewManager(store *Store, limiter *Limiter, backend Authenticator, log *slog.Logger, audit *logger.AuditLogger) *Manager {
	return &Manager{
		store:   store,
		limiter: limiter,
		backend: backend,
		logger:  log,
		audit:   audit,
	}
}

// Login authenticates against the backend and establishes a session. The
// lockout check runs first so a locked identity never costs a backend call.
// Credentials go out of scope when this function returns; only the
// authenticated handle survives, owned by the store.
func (m *Manager) Login(ctx context.Context, host, username, password string) (string, error) {
	identity := models.Identity{Username: username, Host: host}
	key := identity.Key()

	if retryAfter, ok := m.limiter.Allow(key); !ok {
		m.audit.LogAuthAttempt(logger.AuditEvent{
			EventType:     "login_blocked",
			Identity:      key,
			Success:       false,
			FailureReason: "locked_out",
		})
		return "", &models.LockedError{RetryAfter: retryAfter}
	}

	client, err := m.backend.Authenticate(ctx, host, username, password)
	if err != nil {
		if errors.Is(err, models.ErrAuthFailed) {
			m.limiter.RecordFailure(key)
			m.audit.LogAuthAttempt(logger.AuditEvent{
				EventType:     "login_failed",
				Identity:      key,
				Success:       false,
				FailureReason: "invalid_credentials",
			})
			return "", models.ErrAuthFailed
		}
		m.logger.Error("backend authentication errored",
			slog.String("identity", key),
			slog.Any("error", err))
		return "", err
	}

	// The session is published only now, after the handle is fully
	// obtained; an abandoned backend call leaves no half-created session.
	id := m.store.Create(identity, client)
	m.limiter.RecordSuccess(key)

	m.audit.LogAuthAttempt(logger.AuditEvent{
		EventType: "login_success",
		Identity:  key,
		SessionID: id,
		Success:   true,
	})
	return id, nil
}

// Validate resolves a session identifier to its authenticated client handle
// and refreshes the session's last-access time. Missing and expired sessions
// both surface as models.ErrUnauthorized; the distinction stays internal so
// callers cannot tell which identifiers once existed.
func (m *Manager) Validate(sessionID string) (taiga.API, error) {
	client, err := m.store.Get(sessionID)
	if err != nil {
		m.logger.Warn("session validation failed",
			slog.String("session_id", logger.TruncateSessionID(sessionID)))
		return nil, models.ErrUnauthorized
	}
	m.store.Touch(sessionID)
	return client, nil
}

// Logout destroys the session. It is idempotent: logging out a session that
// is already gone succeeds.
func (m *Manager) Logout(sessionID string) {
	m.store.Destroy(sessionID)
	m.audit.LogAuthAttempt(logger.AuditEvent{
		EventType: "logout",
		SessionID: sessionID,
		Success:   true,
	})
}

// Status returns a live session's metadata, or models.ErrUnauthorized under
// the same uniform mapping Validate uses.
func (m *Manager) Status(sessionID string) (Session, error) {
	info, err := m.store.Info(sessionID)
	if err != nil {
		return Session{}, models.ErrUnauthorized
	}
	return info, nil
}

// Stats exposes the counts for the status endpoint.
func (m *Manager) Stats() Stats {
	return Stats{
		ActiveSessions:   m.store.Count(),
		LockedIdentities: m.limiter.LockedCount(),
	}
}
