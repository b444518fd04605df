package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/subscription-engine/internal/adapters/gateway"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/testutil/fixtures"
	"github.com/kevin07696/subscription-engine/pkg/logging"
)

func statuses(events []Event) []domain.ServiceStatus {
	out := make([]domain.ServiceStatus, 0, len(events))
	for _, e := range events {
		out = append(out, e.Status)
	}
	return out
}

func TestRun_DailyPlanRenewsEveryInterval(t *testing.T) {
	plan := fixtures.NewPlan().Daily(7).WithPrice("5.00").Build()

	report, err := Run(context.Background(), Options{
		Plan:     plan,
		Settings: domain.DefaultSettings(),
		Start:    fixtures.Date(2024, 1, 1),
		Days:     22,
		Fallback: gateway.OutcomeApprove,
	}, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceStatusActive, report.Service.Status)
	assert.Equal(t, 4, report.Service.CountRenewal, "activation plus renewals on the 8th, 15th and 22nd")
	assert.Equal(t, fixtures.Date(2024, 1, 29), *report.Service.CurrentPeriodEnd)
	assert.Len(t, report.Charges, 4)
	assert.Len(t, report.Invoices, 4)
}

func TestRun_GraceThenRecovery(t *testing.T) {
	plan := fixtures.NewPlan().WithCustomPeriods(0, 3).Build()

	report, err := Run(context.Background(), Options{
		Plan:             plan,
		Settings:         domain.DefaultSettings(),
		Start:            fixtures.Date(2024, 1, 15),
		Days:             70,
		Script:           []gateway.Outcome{gateway.OutcomeApprove, gateway.OutcomeApprove},
		Fallback:         gateway.OutcomeDecline,
		RecoverAfterDays: 2,
	}, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []domain.ServiceStatus{
		domain.ServiceStatusActive,
		domain.ServiceStatusActive,
		domain.ServiceStatusGrace,
		domain.ServiceStatusPastDue,
		domain.ServiceStatusActive,
	}, statuses(report.Events))

	pastDue := report.Events[3]
	assert.Equal(t, fixtures.Date(2024, 3, 18), pastDue.Date)
	assert.Equal(t, domain.ReasonGraceExpired, pastDue.Note)

	recovered := report.Events[4]
	assert.Equal(t, fixtures.Date(2024, 3, 20), recovered.Date)
	assert.Equal(t, "settled out of band", recovered.Note)
	assert.Equal(t, fixtures.Date(2024, 4, 15), *recovered.PeriodEnd)

	for _, inv := range report.Invoices {
		assert.True(t, inv.IsPaid(), "invoice for %s", inv.PeriodStart)
	}
}

func TestRun_NoGraceGoesPastDue(t *testing.T) {
	plan := fixtures.NewPlan().Daily(1).WithCustomPeriods(0, 0).Build()

	report, err := Run(context.Background(), Options{
		Plan:     plan,
		Settings: domain.DefaultSettings(),
		Start:    fixtures.Date(2024, 6, 1),
		Days:     3,
		Script:   []gateway.Outcome{gateway.OutcomeApprove},
		Fallback: gateway.OutcomeDecline,
	}, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, domain.ServiceStatusPastDue, report.Service.Status)
	assert.Equal(t, domain.ReasonPaymentFailed, report.Service.StatusReason)
}

func TestRun_Validation(t *testing.T) {
	_, err := Run(context.Background(), Options{Days: 1}, logging.NewNop())
	assert.Error(t, err)

	bad := fixtures.NewPlan().Daily(0).Build()
	_, err = Run(context.Background(), Options{Plan: bad, Days: 1}, logging.NewNop())
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{Plan: fixtures.NewPlan().Build(), Days: 0, Start: time.Now()}, logging.NewNop())
	assert.Error(t, err)
}
