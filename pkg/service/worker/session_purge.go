package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
)

// SessionPurgeWorker periodically removes view-model sessions that have been
// idle longer than the configured TTL
//
// Architecture assumptions:
// - Purging is idempotent, so several server instances may run it concurrently
type SessionPurgeWorker struct {
	repo     interfaces.Repository
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewSessionPurgeWorker creates a new worker for purging idle sessions
func NewSessionPurgeWorker(repo interfaces.Repository, ttl, interval time.Duration) *SessionPurgeWorker {
	return &SessionPurgeWorker{
		repo:     repo,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background purge loop
// - Initial purge and periodic purges both run in a background goroutine
// - Does not block server startup
func (w *SessionPurgeWorker) Start(ctx context.Context) error {
	if w.ttl <= 0 || w.interval <= 0 {
		return goerr.New("session TTL and purge interval must be positive",
			goerr.V("ttl", w.ttl.String()),
			goerr.V("interval", w.interval.String()))
	}

	logging.Default().Info("Session purge worker starting",
		"ttl", w.ttl.String(),
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *SessionPurgeWorker) Stop() {
	logging.Default().Info("Session purge worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Session purge worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *SessionPurgeWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.purge(ctx); err != nil {
		logging.Default().Error("Initial session purge failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.purge(ctx); err != nil {
				logging.Default().Error("Session purge failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("Session purge worker context cancelled")
			return
		}
	}
}

// purge performs a single purge cycle
func (w *SessionPurgeWorker) purge(ctx context.Context) error {
	cutoff := w.now().Add(-w.ttl)

	removed, err := w.repo.Session().DeleteIdle(ctx, cutoff)
	if err != nil {
		return goerr.Wrap(err, "failed to delete idle sessions", goerr.V("cutoff", cutoff))
	}

	if removed > 0 {
		logging.Default().Info("Purged idle sessions",
			"count", removed,
			"cutoff", cutoff)
	}
	return nil
}
