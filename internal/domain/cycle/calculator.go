// Package cycle computes billing periods, cycle lengths and prorated prices for plans.
//
// All functions are pure: they read the plan and the instant passed in and never
// consult a clock. Calculators are safe for concurrent use.
package cycle

import (
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// pricePlaces is the number of decimal places prorated prices are rounded to
const pricePlaces = 2

// Calculator evaluates the cadence of a single plan
type Calculator struct {
	plan    *domain.Plan
	cadence cadence
}

// NewCalculator validates plan and returns a calculator for it.
// Plans with an unknown type or monthly behavior yield a PLAN_INVALID_CONFIGURATION error.
func NewCalculator(plan *domain.Plan) (*Calculator, error) {
	if plan == nil {
		return nil, domain.InvalidPlanConfiguration("plan is required")
	}

	c, err := cadenceFor(plan)
	if err != nil {
		return nil, err
	}

	return &Calculator{plan: plan, cadence: c}, nil
}

// Plan returns the plan the calculator was built for
func (c *Calculator) Plan() *domain.Plan {
	return c.plan
}

// PeriodStartDate returns the instant a period beginning at current should start.
// Only monthly plans that do not start before their renewal day move the date.
func (c *Calculator) PeriodStartDate(current time.Time) time.Time {
	return c.cadence.periodStart(current)
}

// PeriodEndDate returns the end of the period starting at start.
// ok is false for lifetime plans, which never end.
func (c *Calculator) PeriodEndDate(start time.Time) (end time.Time, ok bool) {
	return c.cadence.periodEnd(start)
}

// DaysUntilBilling returns the number of days from current to the next renewal day.
// ok is false when the cadence has no fixed renewal day.
func (c *Calculator) DaysUntilBilling(current time.Time) (days int, ok bool) {
	return c.cadence.daysUntilBilling(current)
}

// DaysInCycle returns the length of the cycle containing current
func (c *Calculator) DaysInCycle(current time.Time) (days int, ok bool) {
	return c.cadence.daysInCycle(current)
}

// AdjustPrice prorates price for a service starting at current.
// Only prorated monthly plans are adjusted; on the renewal day, or whenever either
// day count is undefined or not positive, price is returned unchanged.
func (c *Calculator) AdjustPrice(price decimal.Decimal, current time.Time) decimal.Decimal {
	if !c.cadence.prorates() {
		return price
	}

	billableDays, ok := c.cadence.daysUntilBilling(current)
	if !ok || billableDays <= 0 {
		return price
	}

	totalDays, ok := c.cadence.daysInCycle(current)
	if !ok || totalDays <= 0 {
		return price
	}

	return Prorate(price, billableDays, totalDays)
}

// Prorate charges billableDays out of totalDays of price, rounded half-up to cents.
// A non-positive totalDays returns price unchanged.
func Prorate(price decimal.Decimal, billableDays, totalDays int) decimal.Decimal {
	if totalDays <= 0 {
		return price
	}

	return price.
		Mul(decimal.NewFromInt(int64(billableDays))).
		Div(decimal.NewFromInt(int64(totalDays))).
		Round(pricePlaces)
}
