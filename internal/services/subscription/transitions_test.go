package subscription

import (
	"testing"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextAction(t *testing.T) {
	tests := []struct {
		name   string
		status domain.ServiceStatus
		event  Event
		want   Action
	}{
		{"new service activates on payment", domain.ServiceStatusNew, EventPaymentReceived, ActionActivate},
		{"trial activates on payment", domain.ServiceStatusTrial, EventPaymentReceived, ActionActivate},
		{"active renews on payment", domain.ServiceStatusActive, EventPaymentReceived, ActionRenew},
		{"grace renews and catches up", domain.ServiceStatusGrace, EventPaymentReceived, ActionRenewWithCatchUp},
		{"past due renews and catches up", domain.ServiceStatusPastDue, EventPaymentReceived, ActionRenewWithCatchUp},
		{"cancelled ignores payment", domain.ServiceStatusCancelled, EventPaymentReceived, ActionNone},
		{"active fails renewal", domain.ServiceStatusActive, EventRenewalFailed, ActionFailRenewal},
		{"grace fails renewal", domain.ServiceStatusGrace, EventRenewalFailed, ActionFailRenewal},
		{"past due ignores failure", domain.ServiceStatusPastDue, EventRenewalFailed, ActionNone},
		{"trial ignores failure", domain.ServiceStatusTrial, EventRenewalFailed, ActionNone},
		{"cancelled ignores failure", domain.ServiceStatusCancelled, EventRenewalFailed, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextAction(tt.status, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextAction_UnknownStatus(t *testing.T) {
	_, err := nextAction("frozen", EventPaymentReceived)

	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeInvalidTransition))
}

func TestTransitions_CoverEveryStatus(t *testing.T) {
	for _, status := range []domain.ServiceStatus{
		domain.ServiceStatusNew,
		domain.ServiceStatusTrial,
		domain.ServiceStatusActive,
		domain.ServiceStatusGrace,
		domain.ServiceStatusPastDue,
		domain.ServiceStatusCancelled,
	} {
		_, ok := transitions[status]
		assert.True(t, ok, "missing transitions for %s", status)
	}
}

func TestRenewable(t *testing.T) {
	assert.True(t, renewable(domain.ServiceStatusActive))
	assert.True(t, renewable(domain.ServiceStatusGrace))
	assert.False(t, renewable(domain.ServiceStatusNew))
	assert.False(t, renewable(domain.ServiceStatusTrial))
	assert.False(t, renewable(domain.ServiceStatusPastDue))
	assert.False(t, renewable(domain.ServiceStatusCancelled))
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "renew_with_catch_up", ActionRenewWithCatchUp.String())
	assert.Equal(t, "none", Action(42).String())
}
