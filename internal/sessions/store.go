package sessions

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taigabridge/taigabridge/internal/models"
	"github.com/taigabridge/taigabridge/internal/taiga"
	"github.com/taigabridge/taigabridge/pkg/logger"
)

// StoreConfig holds the externally supplied session parameters.
type StoreConfig struct {
	TTL time.Duration
	// Sliding extends the expiry on every Touch instead of keeping the
	// fixed deadline set at creation.
	Sliding bool
	// MaxPerIdentity caps concurrent sessions per identity; zero means
	// unlimited.
	MaxPerIdentity int
}

// Session binds a caller to an authenticated backend client handle for a
// bounded time. The store owns the handle exclusively: once the session is
// destroyed, evicted, or swept, no other component retains a reference.
type Session struct {
	ID           string
	Identity     models.Identity
	CreatedAt    time.Time
	LastAccessed time.Time
	ExpiresAt    time.Time

	client  taiga.API
	release sync.Once
}

// close releases the owned client handle exactly once.
func (s *Session) close() {
	s.release.Do(func() { s.client.Close() })
}

// Store is the process-wide registry of live sessions. A single mutex guards
// both indexes; contention is low and every critical section is free of
// network I/O, so a coarse lock keeps create/evict/expire sequences atomic.
type Store struct {
	mu         sync.Mutex
	config     StoreConfig
	sessions   map[string]*Session
	byIdentity map[string][]string // identity key -> session IDs, oldest first
	logger     *slog.Logger
	now        func() time.Time
}

// NewStore creates an empty session store.
func NewStore(config StoreConfig, log *slog.Logger) *Store {
	return &Store{
		config:     config,
		sessions:   make(map[string]*Session),
		byIdentity: make(map[string][]string),
		logger:     log,
		now:        time.Now,
	}
}

// Create registers a new session owning the given client handle and returns
// its identifier. When the identity's concurrent-session cap is exceeded the
// oldest session for that identity is evicted and its handle released before
// the new one is admitted.
func (st *Store) Create(identity models.Identity, client taiga.API) string {
	key := identity.Key()

	st.mu.Lock()

	var evicted *Session
	if st.config.MaxPerIdentity > 0 && len(st.byIdentity[key]) >= st.config.MaxPerIdentity {
		oldestID := st.byIdentity[key][0]
		evicted = st.removeLocked(oldestID)
	}

	// uuid collisions are not a practical concern, but identifier
	// uniqueness among live sessions is an invariant, so re-draw on the
	// off chance.
	id := uuid.NewString()
	for _, exists := st.sessions[id]; exists; _, exists = st.sessions[id] {
		id = uuid.NewString()
	}

	now := st.now()
	session := &Session{
		ID:           id,
		Identity:     identity,
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    now.Add(st.config.TTL),
		client:       client,
	}
	st.sessions[id] = session
	st.byIdentity[key] = append(st.byIdentity[key], id)

	st.mu.Unlock()

	if evicted != nil {
		evicted.close()
		st.logger.Warn("concurrent session cap reached, evicted oldest",
			slog.String("identity", key),
			slog.String("evicted_session", logger.TruncateSessionID(evicted.ID)))
	}

	st.logger.Info("session created",
		slog.String("identity", key),
		slog.String("session_id", logger.TruncateSessionID(id)),
		slog.Time("expires_at", session.ExpiresAt))
	return id
}

// Get returns the client handle for a live session. It fails with
// models.ErrSessionNotFound for unknown identifiers and with
// models.ErrSessionExpired for expired ones; an expired session is removed
// as a side effect and never resurrects.
func (st *Store) Get(id string) (taiga.API, error) {
	st.mu.Lock()

	session, ok := st.sessions[id]
	if !ok {
		st.mu.Unlock()
		return nil, models.ErrSessionNotFound
	}

	if !st.now().Before(session.ExpiresAt) {
		st.removeLocked(id)
		st.mu.Unlock()
		session.close()
		st.logger.Warn("session expired",
			slog.String("identity", session.Identity.Key()),
			slog.String("session_id", logger.TruncateSessionID(id)))
		return nil, models.ErrSessionExpired
	}

	client := session.client
	st.mu.Unlock()
	return client, nil
}

// Touch refreshes the session's last-access time and, under sliding expiry,
// extends the deadline to now + TTL. Touching an unknown session is a no-op.
func (st *Store) Touch(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	session, ok := st.sessions[id]
	if !ok {
		return
	}
	now := st.now()
	session.LastAccessed = now
	if st.config.Sliding {
		session.ExpiresAt = now.Add(st.config.TTL)
	}
}

// Destroy removes a session and releases its client handle. Destroying a
// session that is already gone succeeds silently.
func (st *Store) Destroy(id string) {
	st.mu.Lock()
	session := st.removeLocked(id)
	st.mu.Unlock()

	if session != nil {
		session.close()
		st.logger.Info("session destroyed",
			slog.String("identity", session.Identity.Key()),
			slog.String("session_id", logger.TruncateSessionID(id)))
	}
}

// Sweep removes every expired session and returns how many were reclaimed.
// It is idempotent and safe to run concurrently with lookups.
func (st *Store) Sweep() int {
	st.mu.Lock()
	now := st.now()
	var expired []*Session
	for id, session := range st.sessions {
		if !now.Before(session.ExpiresAt) {
			expired = append(expired, st.removeLocked(id))
		}
	}
	st.mu.Unlock()

	for _, session := range expired {
		session.close()
	}
	if len(expired) > 0 {
		st.logger.Info("sweep reclaimed expired sessions", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Info returns a snapshot of a live session's metadata for status reporting.
func (st *Store) Info(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	session, ok := st.sessions[id]
	if !ok {
		return Session{}, models.ErrSessionNotFound
	}
	if !st.now().Before(session.ExpiresAt) {
		return Session{}, models.ErrSessionExpired
	}
	return Session{
		ID:           session.ID,
		Identity:     session.Identity,
		CreatedAt:    session.CreatedAt,
		LastAccessed: session.LastAccessed,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Drain destroys every live session. Called at process shutdown so no client
// handle outlives the store.
func (st *Store) Drain() {
	st.mu.Lock()
	var all []*Session
	for id := range st.sessions {
		all = append(all, st.removeLocked(id))
	}
	st.mu.Unlock()

	for _, session := range all {
		session.close()
	}
	if len(all) > 0 {
		st.logger.Info("drained sessions at shutdown", slog.Int("count", len(all)))
	}
}

// removeLocked detaches a session from both indexes. Caller holds st.mu and
// is responsible for releasing the returned session's handle after unlocking.
func (st *Store) removeLocked(id string) *Session {
	session, ok := st.sessions[id]
	if !ok {
		return nil
	}
	delete(st.sessions, id)

	key := session.Identity.Key()
	ids := st.byIdentity[key]
	for i, sid := range ids {
		if sid == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(st.byIdentity, key)
	} else {
		st.byIdentity[key] = ids
	}
	return session
}

// String implements fmt.Stringer without leaking the full identifier.
func (s *Session) String() string {
	return fmt.Sprintf("session %s (%s)", logger.TruncateSessionID(s.ID), s.Identity.Key())
}
