package cycle

import (
	"fmt"
	"strings"

	"github.com/kevin07696/subscription-engine/internal/domain"
)

// Describe renders a plan's cadence for display, e.g.
// "Trial period for 7 days then Renew every 3 days for 12 renewal periods".
func Describe(plan *domain.Plan, settings domain.Settings) string {
	var b strings.Builder

	if trial := plan.TrialPeriod(settings); trial > 0 {
		fmt.Fprintf(&b, "Trial period for %d %s then ", trial, plural("day", trial))
	}

	switch plan.Type {
	case domain.PlanTypeDaily:
		if plan.DayInterval > 1 {
			fmt.Fprintf(&b, "Renew every %d days", plan.DayInterval)
		} else {
			b.WriteString("Renew every day")
		}
	case domain.PlanTypeMonthly:
		switch plan.MonthlyBehavior {
		case domain.MonthlySignup:
			interval := plan.MonthInterval
			if interval < 1 {
				interval = 1
			}
			fmt.Fprintf(&b, "Renew every %d %s on the signup day", interval, plural("month", interval))
		case domain.MonthlyProrate:
			fmt.Fprintf(&b, "Renew on the %s of the month, charging the first partial month pro rata", ordinal(plan.MonthDay))
		case domain.MonthlyFree:
			fmt.Fprintf(&b, "Renew on the %s of the month, free until the first renewal day", ordinal(plan.MonthDay))
		case domain.MonthlyNone:
			fmt.Fprintf(&b, "Renew on the %s of the month, starting on the first renewal day", ordinal(plan.MonthDay))
		}
	case domain.PlanTypeYearly:
		if plan.YearInterval > 1 {
			fmt.Fprintf(&b, "Renew every %d years", plan.YearInterval)
		} else {
			b.WriteString("Renew every year")
		}
	case domain.PlanTypeLifetime:
		b.WriteString("Never renew (lifetime membership)")
	}

	if plan.IsRenewable() && plan.RenewalPeriod > 0 {
		fmt.Fprintf(&b, " for %d renewal periods", plan.RenewalPeriod)
	}

	if grace := plan.GracePeriod(settings); grace > 0 {
		fmt.Fprintf(&b, " and Grace period for %d %s", grace, plural("day", grace))
	}

	return b.String()
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
