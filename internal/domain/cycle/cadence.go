package cycle

import (
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

// cadence is implemented once per plan type. Optional results use the
// (value, ok) form; ok is false when the value is undefined for the cadence.
type cadence interface {
	periodStart(current time.Time) time.Time
	periodEnd(start time.Time) (time.Time, bool)
	daysUntilBilling(current time.Time) (int, bool)
	daysInCycle(current time.Time) (int, bool)
	prorates() bool
}

// cadenceFor maps a validated plan to its cadence variant
func cadenceFor(plan *domain.Plan) (cadence, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	switch plan.Type {
	case domain.PlanTypeDaily:
		return dailyCadence{interval: plan.DayInterval}, nil
	case domain.PlanTypeMonthly:
		interval := plan.MonthInterval
		if interval < 1 {
			interval = 1
		}
		return monthlyCadence{behavior: plan.MonthlyBehavior, monthDay: plan.MonthDay, interval: interval}, nil
	case domain.PlanTypeYearly:
		return yearlyCadence{interval: plan.YearInterval}, nil
	case domain.PlanTypeLifetime:
		return lifetimeCadence{}, nil
	}

	return nil, domain.InvalidPlanConfiguration("unknown membership plan: %q", plan.Type)
}

type dailyCadence struct {
	interval int
}

func (c dailyCadence) periodStart(current time.Time) time.Time { return current }

func (c dailyCadence) periodEnd(start time.Time) (time.Time, bool) {
	return start.AddDate(0, 0, c.interval), true
}

func (c dailyCadence) daysUntilBilling(time.Time) (int, bool) { return 0, false }

func (c dailyCadence) daysInCycle(time.Time) (int, bool) { return c.interval, true }

func (c dailyCadence) prorates() bool { return false }

type yearlyCadence struct {
	interval int
}

func (c yearlyCadence) periodStart(current time.Time) time.Time { return current }

// February 29 clamps to February 28 in non-leap target years
func (c yearlyCadence) periodEnd(start time.Time) (time.Time, bool) {
	year := start.Year() + c.interval
	return onDay(start, year, start.Month(), CheckDate(start.Day(), start.Month(), year)), true
}

func (c yearlyCadence) daysUntilBilling(time.Time) (int, bool) { return 0, false }

// The cycle length of a yearly plan is reported in years
func (c yearlyCadence) daysInCycle(time.Time) (int, bool) { return c.interval, true }

func (c yearlyCadence) prorates() bool { return false }

type lifetimeCadence struct{}

func (lifetimeCadence) periodStart(current time.Time) time.Time { return current }

func (lifetimeCadence) periodEnd(time.Time) (time.Time, bool) { return time.Time{}, false }

func (lifetimeCadence) daysUntilBilling(time.Time) (int, bool) { return 0, false }

func (lifetimeCadence) daysInCycle(time.Time) (int, bool) { return 0, false }

func (lifetimeCadence) prorates() bool { return false }

// monthlyCadence covers the four monthly behaviors. Signup plans follow the
// signup day; the others anchor on monthDay, clamped to each month's length.
type monthlyCadence struct {
	behavior domain.MonthlyBehavior
	monthDay int
	interval int
}

func (c monthlyCadence) periodStart(current time.Time) time.Time {
	if c.behavior != domain.MonthlyNone {
		return current
	}

	if current.Day() <= CheckDate(c.monthDay, current.Month(), current.Year()) {
		return anchorIn(current, c.monthDay, 0)
	}
	return anchorIn(current, c.monthDay, 1)
}

func (c monthlyCadence) periodEnd(start time.Time) (time.Time, bool) {
	switch c.behavior {
	case domain.MonthlySignup:
		return anchorIn(start, start.Day(), c.interval), true
	case domain.MonthlyProrate:
		if start.Day() < CheckDate(c.monthDay, start.Month(), start.Year()) {
			return anchorIn(start, c.monthDay, 0), true
		}
		return anchorIn(start, c.monthDay, 1), true
	default:
		return anchorIn(start, c.monthDay, 1), true
	}
}

func (c monthlyCadence) daysUntilBilling(current time.Time) (int, bool) {
	if c.behavior == domain.MonthlySignup {
		return 0, false
	}

	endDay := CheckDate(c.monthDay, current.Month(), current.Year())
	switch {
	case current.Day() == endDay:
		return 0, true
	case current.Day() < endDay:
		return endDay - current.Day(), true
	}

	return timeutil.DaysBetween(current, anchorIn(current, c.monthDay, 1)), true
}

func (c monthlyCadence) daysInCycle(current time.Time) (int, bool) {
	if c.behavior == domain.MonthlySignup {
		return 0, false
	}

	endDay := CheckDate(c.monthDay, current.Month(), current.Year())
	switch {
	case current.Day() == endDay:
		return 0, true
	case current.Day() < endDay:
		year, month := addMonths(current.Year(), current.Month(), -1)
		return DaysInMonth(month, year), true
	}

	return DaysInMonth(current.Month(), current.Year()), true
}

func (c monthlyCadence) prorates() bool {
	return c.behavior == domain.MonthlyProrate
}
