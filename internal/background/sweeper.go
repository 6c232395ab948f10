package background

import (
	"context"
	"log/slog"
	"time"
)

// Sweepable is anything that can reclaim stale entries: the session store
// and the login rate limiter both qualify.
type Sweepable interface {
	Sweep() int
}

// Sweeper periodically reclaims expired sessions and stale lockout records
// so neither accumulates over the process lifetime.
type Sweeper struct {
	targets  []Sweepable
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a sweeper over the given targets.
func NewSweeper(logger *slog.Logger, interval time.Duration, targets ...Sweepable) *Sweeper {
	return &Sweeper{
		targets:  targets,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. It blocks until Stop is called or the
// context is cancelled, so callers run it in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSweep()
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep() {
	total := 0
	for _, target := range s.targets {
		total += target.Sweep()
	}
	if total > 0 {
		s.logger.Info("background sweep completed", slog.Int("reclaimed", total))
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
