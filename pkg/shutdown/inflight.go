package shutdown

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// InFlightTracker counts renewal runs that are in progress. Once Shutdown starts,
// Add refuses new runs and Shutdown waits for the started ones.
type InFlightTracker struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	draining bool
	running  int
	logger   *zap.Logger
	name     string
}

// NewInFlightTracker creates a tracker; name labels its log lines
func NewInFlightTracker(name string, logger *zap.Logger) *InFlightTracker {
	return &InFlightTracker{logger: logger, name: name}
}

// Add registers one run. It returns false once shutdown has started, in which
// case the caller must not start the run and must not call Done.
func (ift *InFlightTracker) Add() bool {
	ift.mu.Lock()
	defer ift.mu.Unlock()
	if ift.draining {
		return false
	}
	ift.running++
	ift.wg.Add(1)
	return true
}

// Done marks a run registered with Add as finished
func (ift *InFlightTracker) Done() {
	ift.mu.Lock()
	ift.running--
	ift.mu.Unlock()
	ift.wg.Done()
}

// Running returns the number of runs in progress
func (ift *InFlightTracker) Running() int {
	ift.mu.Lock()
	defer ift.mu.Unlock()
	return ift.running
}

// IsShuttingDown reports whether Shutdown has been called
func (ift *InFlightTracker) IsShuttingDown() bool {
	ift.mu.Lock()
	defer ift.mu.Unlock()
	return ift.draining
}

// Shutdown stops accepting runs and waits for in-progress ones, or for ctx to end
func (ift *InFlightTracker) Shutdown(ctx context.Context) error {
	ift.mu.Lock()
	ift.draining = true
	running := ift.running
	ift.mu.Unlock()

	ift.logger.Info("Draining in-flight renewal runs",
		zap.String("tracker", ift.name),
		zap.Int("running", running))

	done := make(chan struct{})
	go func() {
		ift.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		ift.logger.Info("In-flight renewal runs drained", zap.String("tracker", ift.name))
		return nil
	case <-ctx.Done():
		ift.logger.Warn("Shutdown deadline reached with renewal runs in progress",
			zap.String("tracker", ift.name),
			zap.Int("running", ift.Running()))
		return ctx.Err()
	}
}
