package main

import (
	"testing"

	"github.com/kevin07696/subscription-engine/internal/adapters/gateway"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseFlags() planFlags {
	return planFlags{
		planType:      "monthly",
		behavior:      "monthly_signup",
		dayInterval:   1,
		monthInterval: 1,
		monthDay:      1,
		yearInterval:  1,
		price:         "10.00",
		setupPrice:    "0",
		membership:    "0",
		trialDays:     -1,
		graceDays:     -1,
		start:         "2024-01-31",
	}
}

func TestBuildPlan(t *testing.T) {
	t.Run("uses global settings without overrides", func(t *testing.T) {
		f := baseFlags()
		plan, settings, err := f.buildPlan()
		require.NoError(t, err)

		assert.Equal(t, domain.PlanTypeMonthly, plan.Type)
		assert.Equal(t, domain.MonthlySignup, plan.MonthlyBehavior)
		assert.Equal(t, "10", plan.Price.String())
		assert.False(t, plan.IsCustomMembership)
		assert.Equal(t, 24, settings.MaxCatchUpRenewals)
	})

	t.Run("trial and grace flags make a custom membership", func(t *testing.T) {
		f := baseFlags()
		f.graceDays = 3
		plan, settings, err := f.buildPlan()
		require.NoError(t, err)

		assert.True(t, plan.IsCustomMembership)
		assert.Equal(t, 3, plan.GracePeriod(settings))
		assert.Equal(t, 0, plan.TrialPeriod(settings))
	})

	t.Run("membership price goes to settings", func(t *testing.T) {
		f := baseFlags()
		f.membership = "2.50"
		plan, settings, err := f.buildPlan()
		require.NoError(t, err)
		assert.Equal(t, "2.5", plan.MembershipFee(settings).String())
	})

	tests := []struct {
		name   string
		mutate func(f *planFlags)
	}{
		{"bad price", func(f *planFlags) { f.price = "ten" }},
		{"bad setup price", func(f *planFlags) { f.setupPrice = "x" }},
		{"unknown type", func(f *planFlags) { f.planType = "weekly" }},
		{"zero day interval", func(f *planFlags) { f.planType = "daily"; f.dayInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFlags()
			tt.mutate(&f)
			_, _, err := f.buildPlan()
			assert.Error(t, err)
		})
	}
}

func TestStartDate(t *testing.T) {
	f := baseFlags()
	start, err := f.startDate()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31T00:00:00Z", start.Format("2006-01-02T15:04:05Z07:00"))

	f.start = "31/01/2024"
	_, err = f.startDate()
	assert.Error(t, err)
}

func TestParseScript(t *testing.T) {
	script, err := parseScript("approve, Decline,,error")
	require.NoError(t, err)
	assert.Equal(t, []gateway.Outcome{gateway.OutcomeApprove, gateway.OutcomeDecline, gateway.OutcomeError}, script)

	script, err = parseScript("")
	require.NoError(t, err)
	assert.Empty(t, script)

	_, err = parseScript("approve,maybe")
	assert.Error(t, err)
}
