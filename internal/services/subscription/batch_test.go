package subscription

import (
	"context"
	"errors"
	"testing"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/testutil/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func noopRelease(context.Context) error { return nil }

func TestProcessDueRenewals(t *testing.T) {
	ctx := context.Background()
	now := fixtures.Date(2024, 2, 16)

	dueService := func(id string, plan *domain.Plan) *domain.Service {
		return fixtures.NewService(plan).WithID(id).
			WithPeriod(fixtures.Date(2024, 1, 15), fixtures.Date(2024, 2, 15)).
			Build()
	}

	t.Run("counts every outcome", func(t *testing.T) {
		e, deps := setupEngine(now, domain.DefaultSettings())
		plan := fixtures.NewPlan().WithCustomPeriods(0, 3).Build()
		paying := dueService("paying", plan)
		declined := dueService("declined", plan)
		locked := dueService("locked", plan)
		completed := fixtures.NewService(fixtures.NewPlan().WithRenewalPeriod(1).Build()).WithID("completed").
			WithPeriod(fixtures.Date(2024, 1, 15), fixtures.Date(2024, 2, 15)).
			WithCountRenewal(1).
			Build()

		deps.services.On("ListDueForRenewal", mock.Anything, mock.Anything, now, int32(50)).
			Return([]*domain.Service{paying.Clone(), declined.Clone(), locked.Clone(), completed.Clone()}, nil)

		for _, svc := range []*domain.Service{paying, declined, completed} {
			deps.locker.On("Acquire", mock.Anything, svc.ID, DefaultLockTTL).Return(noopRelease, nil)
			deps.services.On("GetByID", mock.Anything, mock.Anything, svc.ID).Return(svc, nil)
		}
		deps.locker.On("Acquire", mock.Anything, "locked", DefaultLockTTL).Return(nil, domain.ErrServiceLocked)

		deps.invoices.On("RaiseRenewalInvoice", mock.Anything, isService("paying")).Return(renewalInvoice(paying), nil)
		deps.invoices.On("RaiseRenewalInvoice", mock.Anything, isService("declined")).Return(renewalInvoice(declined), nil)
		deps.invoices.On("AttemptAutomaticPayment", mock.Anything, mock.Anything, isService("paying")).Return(true, nil)
		deps.invoices.On("AttemptAutomaticPayment", mock.Anything, mock.Anything, isService("declined")).Return(false, nil)
		deps.lifecycle.On("Renew", mock.Anything, paying).Run(advancePeriod).Return(nil)
		deps.lifecycle.On("StartGrace", mock.Anything, declined, domain.ReasonPaymentFailed).Return(nil)
		deps.lifecycle.On("Cancel", mock.Anything, completed, domain.ReasonRenewalLimit).Return(nil)

		result, err := e.ProcessDueRenewals(ctx, 50)

		require.NoError(t, err)
		assert.Equal(t, 4, result.ProcessedCount)
		assert.Equal(t, 1, result.RenewedCount)
		assert.Equal(t, 1, result.GraceCount)
		assert.Equal(t, 1, result.CompletedCount)
		assert.Equal(t, 1, result.SkippedCount)
		assert.Equal(t, 0, result.FailedCount)
		assert.Empty(t, result.Errors)
		deps.services.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, "locked")
	})

	t.Run("failures are recorded and the batch continues", func(t *testing.T) {
		e, deps := setupEngine(now, domain.DefaultSettings())
		plan := fixtures.NewPlan().Build()
		broken := dueService("broken", plan)
		gone := dueService("gone", plan)
		deps.services.On("ListDueForRenewal", mock.Anything, mock.Anything, now, int32(10)).
			Return([]*domain.Service{broken.Clone(), gone.Clone()}, nil)
		deps.locker.On("Acquire", mock.Anything, mock.Anything, DefaultLockTTL).Return(noopRelease, nil)
		deps.services.On("GetByID", mock.Anything, mock.Anything, "broken").Return(broken, nil)
		deps.services.On("GetByID", mock.Anything, mock.Anything, "gone").Return(nil, domain.ErrServiceNotFound)
		deps.invoices.On("RaiseRenewalInvoice", mock.Anything, broken).Return(nil, errors.New("connection reset"))

		result, err := e.ProcessDueRenewals(ctx, 10)

		require.NoError(t, err)
		assert.Equal(t, 2, result.FailedCount)
		require.Len(t, result.Errors, 2)
		assert.Equal(t, "broken", result.Errors[0].ServiceID)
		assert.Equal(t, string(domain.ErrorCodeCollaboratorFailure), result.Errors[0].Code)
		assert.True(t, result.Errors[0].Retriable)
		assert.Equal(t, string(domain.ErrorCodeServiceNotFound), result.Errors[1].Code)
	})

	t.Run("list failure aborts the batch", func(t *testing.T) {
		e, deps := setupEngine(now, domain.DefaultSettings())
		deps.services.On("ListDueForRenewal", mock.Anything, mock.Anything, now, int32(10)).
			Return(nil, errors.New("pool closed"))

		result, err := e.ProcessDueRenewals(ctx, 10)

		require.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("cancelled context skips the rest", func(t *testing.T) {
		e, deps := setupEngine(now, domain.DefaultSettings())
		plan := fixtures.NewPlan().Build()
		deps.services.On("ListDueForRenewal", mock.Anything, mock.Anything, now, int32(10)).
			Return([]*domain.Service{dueService("a", plan), dueService("b", plan)}, nil)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		result, err := e.ProcessDueRenewals(cancelled, 10)

		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, result)
		assert.Equal(t, 2, result.SkippedCount)
		deps.locker.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRetriable(t *testing.T) {
	assert.True(t, retriable(errors.New("timeout")))
	assert.True(t, retriable(domain.CollaboratorFailure("charge", errors.New("503"))))
	assert.False(t, retriable(domain.NewDomainError(domain.ErrorCodeCatchUpLimit, "behind")))
	assert.False(t, retriable(domain.InvalidPlanConfiguration("bad day %d", 40)))
}
