package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/observability"
)

// ProcessDueRenewals renews up to batchSize active or grace services whose period has
// ended by the engine's clock. Services locked by another worker are skipped.
func (e *Engine) ProcessDueRenewals(ctx context.Context, batchSize int) (*ports.RenewalBatchResult, error) {
	started := time.Now()
	defer func() { observability.RecordRenewalBatch(time.Since(started).Seconds()) }()

	asOf := e.clock.Now()
	due, err := e.services.ListDueForRenewal(ctx, nil, asOf, int32(batchSize))
	if err != nil {
		return nil, fmt.Errorf("list services due for renewal: %w", err)
	}

	result := &ports.RenewalBatchResult{
		ProcessedCount: len(due),
		Errors:         make([]ports.RenewalError, 0),
	}

	e.logger.Info("processing renewal batch",
		ports.Time("as_of", asOf),
		ports.Int("count", len(due)))

	for i, listed := range due {
		if err := ctx.Err(); err != nil {
			result.SkippedCount += len(due) - i
			return result, err
		}

		outcome, err := e.processOne(ctx, listed.ID)
		if err != nil {
			if errors.Is(err, domain.ErrServiceLocked) {
				observability.RecordLockContention()
				result.SkippedCount++
				continue
			}

			result.FailedCount++
			result.Errors = append(result.Errors, ports.RenewalError{
				ServiceID: listed.ID,
				UserID:    listed.UserID,
				Code:      string(domain.GetErrorCode(err)),
				Error:     err.Error(),
				Retriable: retriable(err),
			})
			e.logger.Error("renewal failed for service",
				ports.String("service_id", listed.ID),
				ports.String("user_id", listed.UserID),
				ports.Err(err))
			continue
		}

		switch outcome {
		case domain.RenewalOutcomeRenewed:
			result.RenewedCount++
		case domain.RenewalOutcomeGrace:
			result.GraceCount++
		case domain.RenewalOutcomePastDue:
			result.PastDueCount++
		case domain.RenewalOutcomeCompleted:
			result.CompletedCount++
		default:
			result.SkippedCount++
		}
	}

	e.logger.Info("renewal batch completed",
		ports.Int("processed", result.ProcessedCount),
		ports.Int("renewed", result.RenewedCount),
		ports.Int("grace", result.GraceCount),
		ports.Int("past_due", result.PastDueCount),
		ports.Int("failed", result.FailedCount),
		ports.Int("skipped", result.SkippedCount))

	return result, nil
}

// processOne renews a single service under its lock, reloading it so the
// attempt never works on a stale listing
func (e *Engine) processOne(ctx context.Context, serviceID string) (domain.RenewalOutcome, error) {
	release, err := e.acquire(ctx, serviceID)
	if err != nil {
		return domain.RenewalOutcomeSkipped, err
	}
	defer e.releaseLock(ctx, serviceID, release)

	service, err := e.services.GetByID(ctx, nil, serviceID)
	if err != nil {
		return domain.RenewalOutcomeSkipped, fmt.Errorf("reload service: %w", err)
	}

	return e.AttemptRenewService(ctx, service)
}

// retriable reports whether a later batch may succeed where this one failed
func retriable(err error) bool {
	switch domain.GetErrorCode(err) {
	case domain.ErrorCodePlanInvalidConfig, domain.ErrorCodeInvalidTransition, domain.ErrorCodeCatchUpLimit:
		return false
	}
	return true
}
