package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanType defines the renewal cadence family of a plan
type PlanType string

const (
	PlanTypeDaily    PlanType = "daily"
	PlanTypeMonthly  PlanType = "monthly"
	PlanTypeYearly   PlanType = "yearly"
	PlanTypeLifetime PlanType = "lifetime"
)

// MonthlyBehavior selects how a monthly plan anchors its renewal day
type MonthlyBehavior string

const (
	// MonthlySignup renews every X months on the signup day of month
	MonthlySignup MonthlyBehavior = "monthly_signup"
	// MonthlyProrate renews on a fixed day and bills the first partial period pro rata
	MonthlyProrate MonthlyBehavior = "monthly_prorate"
	// MonthlyFree renews on a fixed day and gives the first partial period away
	MonthlyFree MonthlyBehavior = "monthly_free"
	// MonthlyNone renews on a fixed day and does not start the service before it
	MonthlyNone MonthlyBehavior = "monthly_none"
)

// Settings holds the global billing defaults used when a plan does not override them
type Settings struct {
	TrialDays          int
	GraceDays          int
	MembershipPrice    decimal.Decimal
	IsTrialInclusive   bool
	MaxCatchUpRenewals int
}

// DefaultSettings returns the defaults used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		MembershipPrice:    decimal.Zero,
		MaxCatchUpRenewals: 24,
	}
}

// Plan is the cadence and pricing configuration a service subscribes to
type Plan struct {
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	TrialDays          *int            `json:"trial_days"`
	GraceDays          *int            `json:"grace_days"`
	Price              decimal.Decimal `json:"price"`
	SetupPrice         decimal.Decimal `json:"setup_price"`
	MembershipPrice    decimal.Decimal `json:"membership_price"`
	Features           []string        `json:"features"`
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Type               PlanType        `json:"plan_type"`
	MonthlyBehavior    MonthlyBehavior `json:"plan_monthly_behavior"`
	DayInterval        int             `json:"plan_day_interval"`
	MonthInterval      int             `json:"plan_month_interval"`
	MonthDay           int             `json:"plan_month_day"`
	YearInterval       int             `json:"plan_year_interval"`
	RenewalPeriod      int             `json:"renewal_period"`
	IsCustomMembership bool            `json:"is_custom_membership"`
	IsActive           bool            `json:"is_active"`
}

// Validate checks that the cadence configuration can be evaluated
func (p *Plan) Validate() error {
	switch p.Type {
	case PlanTypeDaily:
		if p.DayInterval <= 0 {
			return InvalidPlanConfiguration("daily plan %q needs a positive day interval, got %d", p.ID, p.DayInterval)
		}
	case PlanTypeYearly:
		if p.YearInterval <= 0 {
			return InvalidPlanConfiguration("yearly plan %q needs a positive year interval, got %d", p.ID, p.YearInterval)
		}
	case PlanTypeMonthly:
		switch p.MonthlyBehavior {
		case MonthlySignup:
			if p.MonthInterval < 0 {
				return InvalidPlanConfiguration("monthly plan %q has a negative month interval", p.ID)
			}
		case MonthlyProrate, MonthlyFree, MonthlyNone:
			if p.MonthDay < 1 || p.MonthDay > 31 {
				return InvalidPlanConfiguration("monthly plan %q needs a month day between 1 and 31, got %d", p.ID, p.MonthDay)
			}
		default:
			return InvalidPlanConfiguration("unknown monthly behavior: %q", p.MonthlyBehavior)
		}
	case PlanTypeLifetime:
	default:
		return InvalidPlanConfiguration("unknown membership plan: %q", p.Type)
	}

	if p.TrialDays != nil && *p.TrialDays < 0 {
		return InvalidPlanConfiguration("plan %q has negative trial days", p.ID)
	}
	if p.GraceDays != nil && *p.GraceDays < 0 {
		return InvalidPlanConfiguration("plan %q has negative grace days", p.ID)
	}
	if p.Price.IsNegative() || p.SetupPrice.IsNegative() {
		return InvalidPlanConfiguration("plan %q has a negative price", p.ID)
	}

	return nil
}

// IsRenewable reports whether services on this plan ever renew
func (p *Plan) IsRenewable() bool {
	return p.Type != PlanTypeLifetime
}

// IsFree returns true for plans with no recurring price
func (p *Plan) IsFree() bool {
	return p.Price.IsZero()
}

// IsTrialInclusive reports whether the trial counts as part of the first paid period.
// Prorated monthly plans are always trial inclusive.
func (p *Plan) IsTrialInclusive(s Settings) bool {
	if p.Type == PlanTypeMonthly && p.MonthlyBehavior == MonthlyProrate {
		return true
	}
	return s.IsTrialInclusive
}

// TrialPeriod returns the trial length in days
func (p *Plan) TrialPeriod(s Settings) int {
	if p.IsCustomMembership {
		return derefDays(p.TrialDays)
	}
	return s.TrialDays
}

// HasTrialPeriod reports whether new services start in trial
func (p *Plan) HasTrialPeriod(s Settings) bool {
	return p.TrialPeriod(s) > 0
}

// GracePeriod returns the grace length in days
func (p *Plan) GracePeriod(s Settings) int {
	if p.IsCustomMembership {
		return derefDays(p.GraceDays)
	}
	return s.GraceDays
}

// HasGracePeriod reports whether a failed renewal enters grace instead of past due
func (p *Plan) HasGracePeriod(s Settings) bool {
	return p.GracePeriod(s) > 0
}

// HasSetupPrice reports whether the first invoice carries a setup fee
func (p *Plan) HasSetupPrice() bool {
	return p.SetupPrice.IsPositive()
}

// MembershipFee returns the one-off membership fee
func (p *Plan) MembershipFee(s Settings) decimal.Decimal {
	if p.IsCustomMembership {
		return p.MembershipPrice
	}
	return s.MembershipPrice
}

// Total returns price plus setup price
func (p *Plan) Total() decimal.Decimal {
	return p.Price.Add(p.SetupPrice)
}

// SwitchPrice returns the price to switch a service currently paying servicePrice to this plan
func (p *Plan) SwitchPrice(servicePrice decimal.Decimal) decimal.Decimal {
	return decimal.Max(p.Price.Sub(servicePrice), decimal.Zero)
}

// IsUpgrade returns true if switching to this plan costs more than servicePrice
func (p *Plan) IsUpgrade(servicePrice decimal.Decimal) bool {
	return p.Price.GreaterThan(servicePrice)
}

// IsDowngrade returns true if switching to this plan costs less than servicePrice
func (p *Plan) IsDowngrade(servicePrice decimal.Decimal) bool {
	return servicePrice.GreaterThan(p.Price)
}

func derefDays(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
