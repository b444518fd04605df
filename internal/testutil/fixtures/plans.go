package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// PlanBuilder provides fluent API for building test plans.
type PlanBuilder struct {
	plan *domain.Plan
}

// NewPlan creates a plan builder defaulting to a $29.99 monthly signup plan.
func NewPlan() *PlanBuilder {
	now := time.Now()
	return &PlanBuilder{
		plan: &domain.Plan{
			ID:              uuid.New().String(),
			Name:            "Standard",
			Type:            domain.PlanTypeMonthly,
			MonthlyBehavior: domain.MonthlySignup,
			MonthInterval:   1,
			Price:           decimal.RequireFromString("29.99"),
			IsActive:        true,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *PlanBuilder) WithID(id string) *PlanBuilder {
	b.plan.ID = id
	return b
}

func (b *PlanBuilder) WithPrice(price string) *PlanBuilder {
	b.plan.Price = decimal.RequireFromString(price)
	return b
}

func (b *PlanBuilder) WithSetupPrice(price string) *PlanBuilder {
	b.plan.SetupPrice = decimal.RequireFromString(price)
	return b
}

// Daily switches the plan to renew every interval days.
func (b *PlanBuilder) Daily(interval int) *PlanBuilder {
	b.plan.Type = domain.PlanTypeDaily
	b.plan.MonthlyBehavior = ""
	b.plan.DayInterval = interval
	return b
}

// Monthly switches the plan to a monthly behavior anchored on monthDay.
func (b *PlanBuilder) Monthly(behavior domain.MonthlyBehavior, monthDay int) *PlanBuilder {
	b.plan.Type = domain.PlanTypeMonthly
	b.plan.MonthlyBehavior = behavior
	b.plan.MonthDay = monthDay
	return b
}

// Yearly switches the plan to renew every interval years.
func (b *PlanBuilder) Yearly(interval int) *PlanBuilder {
	b.plan.Type = domain.PlanTypeYearly
	b.plan.MonthlyBehavior = ""
	b.plan.YearInterval = interval
	return b
}

// Lifetime switches the plan to a never-renewing membership.
func (b *PlanBuilder) Lifetime() *PlanBuilder {
	b.plan.Type = domain.PlanTypeLifetime
	b.plan.MonthlyBehavior = ""
	return b
}

// WithCustomPeriods overrides the global trial and grace defaults.
func (b *PlanBuilder) WithCustomPeriods(trialDays, graceDays int) *PlanBuilder {
	b.plan.IsCustomMembership = true
	b.plan.TrialDays = IntPtr(trialDays)
	b.plan.GraceDays = IntPtr(graceDays)
	return b
}

func (b *PlanBuilder) WithRenewalPeriod(n int) *PlanBuilder {
	b.plan.RenewalPeriod = n
	return b
}

func (b *PlanBuilder) Build() *domain.Plan {
	return b.plan
}
