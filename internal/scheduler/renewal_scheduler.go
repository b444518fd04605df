// Package scheduler runs renewal batches on a cron schedule inside the server process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/resilience"
	"github.com/kevin07696/subscription-engine/pkg/shutdown"
)

// RenewalScheduler calls ProcessDueRenewals on a cron spec. A run still in
// progress when the next tick fires causes that tick to be skipped.
type RenewalScheduler struct {
	cron      *cron.Cron
	processor ports.RenewalProcessor
	tracker   *shutdown.InFlightTracker
	timeouts  *resilience.TimeoutConfig
	batchSize int
	logger    *zap.Logger
}

// NewRenewalScheduler parses spec (standard five field cron or a descriptor such as "@every 1h")
func NewRenewalScheduler(
	spec string,
	processor ports.RenewalProcessor,
	tracker *shutdown.InFlightTracker,
	batchSize int,
	logger *zap.Logger,
) (*RenewalScheduler, error) {
	cronLogger := zapCronLogger{logger.Sugar()}
	s := &RenewalScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		processor: processor,
		tracker:   tracker,
		timeouts:  resilience.DefaultTimeoutConfig(),
		batchSize: batchSize,
		logger:    logger,
	}

	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the schedule
func (s *RenewalScheduler) Start() {
	s.cron.Start()
	s.logger.Info("Renewal scheduler started", zap.Int("batch_size", s.batchSize))
}

// Shutdown stops the schedule and waits for a running batch, bounded by ctx
func (s *RenewalScheduler) Shutdown(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce processes one batch. It returns nil without running when the tracker is shutting down.
func (s *RenewalScheduler) RunOnce(parent context.Context) *ports.RenewalBatchResult {
	if s.tracker != nil {
		if !s.tracker.Add() {
			s.logger.Info("Skipping renewal run during shutdown")
			return nil
		}
		defer s.tracker.Done()
	}

	ctx, cancel := s.timeouts.CronContext(parent)
	defer cancel()

	result, err := s.processor.ProcessDueRenewals(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Scheduled renewal run failed", zap.Error(err))
	}
	if result != nil {
		s.logger.Info("Scheduled renewal run completed",
			zap.Int("processed", result.ProcessedCount),
			zap.Int("renewed", result.RenewedCount),
			zap.Int("grace", result.GraceCount),
			zap.Int("past_due", result.PastDueCount),
			zap.Int("failed", result.FailedCount),
		)
	}
	return result
}

// zapCronLogger adapts zap to cron.Logger
type zapCronLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
