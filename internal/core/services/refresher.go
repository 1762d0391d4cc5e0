package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driving"
	"github.com/custodia-labs/ksef-desk/internal/logger"
)

// Refresher periodically re-runs the active identity's stored query in the
// background. It is a pure core service with no external control API.
type Refresher struct {
	orch     driving.Orchestrator
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefresher creates a refresher that ticks every interval.
func NewRefresher(orch driving.Orchestrator, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = domain.DefaultRefreshInterval
	}
	return &Refresher{
		orch:     orch,
		interval: interval,
	}
}

// Start begins the refresh loop. This method blocks until Stop is called or
// ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil // Already running
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	defer close(doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Debug("Background refresh every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// Stop ends the loop and waits for an in-flight refresh to finish.
func (r *Refresher) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stopCh)
	doneCh := r.doneCh
	r.mu.Unlock()

	<-doneCh
	return nil
}

func (r *Refresher) markStopped() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// tick runs one refresh. A manual job in progress skips the tick.
func (r *Refresher) tick(ctx context.Context) {
	added, err := r.orch.Refresh(ctx)
	switch {
	case errors.Is(err, domain.ErrJobRunning):
		logger.Debug("Background refresh skipped: a job is running")
	case errors.Is(err, domain.ErrAuthRequired):
		logger.Debug("Background refresh skipped: no active profile")
	case err != nil:
		logger.Warn("Background refresh failed: %v", err)
	default:
		logger.Debug("Background refresh added %d invoices", added)
	}
}
