package sessions

import (
	"log/slog"
	"sync"
	"time"
)

// LimiterConfig holds the externally supplied rate-limit parameters. A
// MaxFailures of zero disables limiting entirely.
type LimiterConfig struct {
	MaxFailures     int
	Window          time.Duration
	LockoutDuration time.Duration
}

type lockoutRecord struct {
	failures    []time.Time
	lockedUntil time.Time
}

// Limiter tracks failed authentication attempts per identity key using a
// sliding window and enforces a temporary lockout once the threshold is
// reached. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	config  LimiterConfig
	records map[string]*lockoutRecord
	logger  *slog.Logger
	now     func() time.Time
}

// NewLimiter creates a Limiter with the given configuration.
func NewLimiter(config LimiterConfig, logger *slog.Logger) *Limiter {
	return &Limiter{
		config:  config,
		records: make(map[string]*lockoutRecord),
		logger:  logger,
		now:     time.Now,
	}
}

// Allow reports whether a login attempt for the identity key may proceed.
// When the identity is locked out it returns the remaining lockout duration
// and false. Checking never counts as an additional failure.
func (l *Limiter) Allow(key string) (time.Duration, bool) {
	if l.config.MaxFailures == 0 {
		return 0, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return 0, true
	}

	now := l.now()
	if now.Before(rec.lockedUntil) {
		remaining := rec.lockedUntil.Sub(now)
		l.logger.Warn("login attempt blocked by lockout",
			slog.String("identity", key),
			slog.Duration("retry_after", remaining))
		return remaining, false
	}

	rec.prune(now.Add(-l.config.Window))
	if len(rec.failures) >= l.config.MaxFailures {
		rec.lockedUntil = now.Add(l.config.LockoutDuration)
		l.logger.Warn("failure threshold reached, applying lockout",
			slog.String("identity", key),
			slog.Int("failures", len(rec.failures)),
			slog.Duration("lockout", l.config.LockoutDuration))
		return l.config.LockoutDuration, false
	}

	return 0, true
}

// RecordFailure appends a failure timestamp for the identity key and applies
// a lockout if the sliding-window threshold is now reached.
func (l *Limiter) RecordFailure(key string) {
	if l.config.MaxFailures == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		rec = &lockoutRecord{}
		l.records[key] = rec
	}

	now := l.now()
	rec.prune(now.Add(-l.config.Window))
	rec.failures = append(rec.failures, now)

	if len(rec.failures) >= l.config.MaxFailures {
		rec.lockedUntil = now.Add(l.config.LockoutDuration)
		l.logger.Warn("failure threshold reached, applying lockout",
			slog.String("identity", key),
			slog.Int("failures", len(rec.failures)),
			slog.Duration("lockout", l.config.LockoutDuration))
	}
}

// RecordSuccess clears the identity's failure history and any lockout. A
// valid re-authentication must never leave a lingering lockout behind.
func (l *Limiter) RecordSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}

// Sweep drops records that hold no active lockout and no failure inside
// twice the window. Returns the number of records removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-2 * l.config.Window)
	removed := 0
	for key, rec := range l.records {
		if now.Before(rec.lockedUntil) {
			continue
		}
		rec.prune(cutoff)
		if len(rec.failures) == 0 {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// LockedCount returns how many identities are currently locked out.
func (l *Limiter) LockedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	count := 0
	for _, rec := range l.records {
		if now.Before(rec.lockedUntil) {
			count++
		}
	}
	return count
}

// prune drops failures older than the cutoff. Timestamps are appended in
// order, so the slice stays sorted.
func (r *lockoutRecord) prune(cutoff time.Time) {
	i := 0
	for i < len(r.failures) && r.failures[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		r.failures = append(r.failures[:0], r.failures[i:]...)
	}
}
