package cycle

import (
	"testing"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func dailyPlan(interval int) *domain.Plan {
	return &domain.Plan{ID: "daily", Type: domain.PlanTypeDaily, DayInterval: interval}
}

func yearlyPlan(interval int) *domain.Plan {
	return &domain.Plan{ID: "yearly", Type: domain.PlanTypeYearly, YearInterval: interval}
}

func monthlyPlan(behavior domain.MonthlyBehavior, monthDay int) *domain.Plan {
	return &domain.Plan{ID: "monthly", Type: domain.PlanTypeMonthly, MonthlyBehavior: behavior, MonthDay: monthDay, MonthInterval: 1}
}

func lifetimePlan() *domain.Plan {
	return &domain.Plan{ID: "lifetime", Type: domain.PlanTypeLifetime}
}

func mustCalculator(t *testing.T, plan *domain.Plan) *Calculator {
	t.Helper()
	calc, err := NewCalculator(plan)
	require.NoError(t, err)
	return calc
}

func TestNewCalculator_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		plan *domain.Plan
	}{
		{"nil plan", nil},
		{"unknown plan type", &domain.Plan{Type: "weekly"}},
		{"unknown monthly behavior", &domain.Plan{Type: domain.PlanTypeMonthly, MonthlyBehavior: "monthly_custom", MonthDay: 1}},
		{"daily without interval", &domain.Plan{Type: domain.PlanTypeDaily}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc, err := NewCalculator(tt.plan)
			require.Error(t, err)
			assert.Nil(t, calc)
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodePlanInvalidConfig))
		})
	}
}

func TestCalculator_PeriodStartDate(t *testing.T) {
	tests := []struct {
		name    string
		plan    *domain.Plan
		current time.Time
		want    time.Time
	}{
		{"daily unchanged", dailyPlan(7), date(2024, 3, 20), date(2024, 3, 20)},
		{"yearly unchanged", yearlyPlan(1), date(2024, 3, 20), date(2024, 3, 20)},
		{"lifetime unchanged", lifetimePlan(), date(2024, 3, 20), date(2024, 3, 20)},
		{"prorate unchanged", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 3, 20), date(2024, 3, 20)},
		{"free unchanged", monthlyPlan(domain.MonthlyFree, 15), date(2024, 3, 20), date(2024, 3, 20)},
		{"none before anchor moves forward", monthlyPlan(domain.MonthlyNone, 15), date(2024, 3, 10), date(2024, 3, 15)},
		{"none on anchor stays", monthlyPlan(domain.MonthlyNone, 15), date(2024, 3, 15), date(2024, 3, 15)},
		{"none after anchor moves to next month", monthlyPlan(domain.MonthlyNone, 15), date(2024, 3, 20), date(2024, 4, 15)},
		{"none clamps anchor in february", monthlyPlan(domain.MonthlyNone, 31), date(2024, 2, 10), date(2024, 2, 29)},
		{"none on clamped anchor", monthlyPlan(domain.MonthlyNone, 31), date(2024, 4, 30), date(2024, 4, 30)},
		{"none past clamped anchor", monthlyPlan(domain.MonthlyNone, 30), date(2024, 1, 31), date(2024, 2, 29)},
		{"none across year", monthlyPlan(domain.MonthlyNone, 1), date(2024, 12, 2), date(2025, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := mustCalculator(t, tt.plan)
			assert.Equal(t, tt.want, calc.PeriodStartDate(tt.current))
		})
	}
}

func TestCalculator_PeriodStartDate_KeepsClockTime(t *testing.T) {
	calc := mustCalculator(t, monthlyPlan(domain.MonthlyNone, 15))

	got := calc.PeriodStartDate(time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC), got)
}

func TestCalculator_PeriodEndDate(t *testing.T) {
	signupQuarterly := monthlyPlan(domain.MonthlySignup, 0)
	signupQuarterly.MonthInterval = 3
	signupNoInterval := monthlyPlan(domain.MonthlySignup, 0)
	signupNoInterval.MonthInterval = 0

	tests := []struct {
		name  string
		plan  *domain.Plan
		start time.Time
		want  time.Time
	}{
		{"daily seven days", dailyPlan(7), date(2024, 1, 1), date(2024, 1, 8)},
		{"daily across month", dailyPlan(1), date(2024, 1, 31), date(2024, 2, 1)},
		{"yearly", yearlyPlan(2), date(2023, 6, 15), date(2025, 6, 15)},
		{"yearly from leap day clamps", yearlyPlan(1), date(2024, 2, 29), date(2025, 2, 28)},
		{"signup same day next month", monthlyPlan(domain.MonthlySignup, 0), date(2024, 1, 15), date(2024, 2, 15)},
		{"signup clamps to february", monthlyPlan(domain.MonthlySignup, 0), date(2024, 1, 31), date(2024, 2, 29)},
		{"signup clamps to april", monthlyPlan(domain.MonthlySignup, 0), date(2024, 3, 31), date(2024, 4, 30)},
		{"signup quarterly across year", signupQuarterly, date(2024, 11, 30), date(2025, 2, 28)},
		{"signup zero interval means one", signupNoInterval, date(2024, 5, 10), date(2024, 6, 10)},
		{"prorate before clamped anchor", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 2, 15), date(2024, 2, 29)},
		{"prorate on clamped anchor", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 2, 29), date(2024, 3, 31)},
		{"prorate on anchor in short month", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 4, 30), date(2024, 5, 31)},
		{"prorate before anchor", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 3, 10), date(2024, 3, 15)},
		{"prorate after anchor", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 3, 20), date(2024, 4, 15)},
		{"prorate after anchor across year", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 12, 20), date(2025, 1, 15)},
		{"free next month", monthlyPlan(domain.MonthlyFree, 1), date(2024, 1, 14), date(2024, 2, 1)},
		{"free on anchor still next month", monthlyPlan(domain.MonthlyFree, 1), date(2024, 1, 1), date(2024, 2, 1)},
		{"none clamps next month", monthlyPlan(domain.MonthlyNone, 31), date(2024, 1, 31), date(2024, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := mustCalculator(t, tt.plan)
			got, ok := calc.PeriodEndDate(tt.start)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculator_PeriodEndDate_Lifetime(t *testing.T) {
	calc := mustCalculator(t, lifetimePlan())

	_, ok := calc.PeriodEndDate(date(2024, 1, 1))

	assert.False(t, ok, "lifetime plans never end")
}

func TestCalculator_PeriodEndDate_KeepsClockTimeAndLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	calc := mustCalculator(t, monthlyPlan(domain.MonthlySignup, 0))

	got, ok := calc.PeriodEndDate(time.Date(2024, 1, 31, 9, 15, 0, 0, loc))

	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 9, 15, 0, 0, loc), got)
}

// For every prorated plan the end day equals the anchor clamped to the end month
func TestCalculator_ProrateEndDayIsClampedAnchor(t *testing.T) {
	for monthDay := 1; monthDay <= 31; monthDay++ {
		calc := mustCalculator(t, monthlyPlan(domain.MonthlyProrate, monthDay))

		for start := date(2023, 1, 1); start.Before(date(2025, 1, 1)); start = start.AddDate(0, 0, 1) {
			end, ok := calc.PeriodEndDate(start)
			require.True(t, ok)

			if !assert.Equal(t, CheckDate(monthDay, end.Month(), end.Year()), end.Day(),
				"monthDay %d start %s", monthDay, start.Format("2006-01-02")) {
				return
			}
			if !assert.True(t, end.After(start), "monthDay %d start %s", monthDay, start.Format("2006-01-02")) {
				return
			}
		}
	}
}

func TestCalculator_DaysUntilBilling(t *testing.T) {
	tests := []struct {
		name    string
		plan    *domain.Plan
		current time.Time
		want    int
		wantOK  bool
	}{
		{"lifetime undefined", lifetimePlan(), date(2024, 2, 15), 0, false},
		{"signup undefined", monthlyPlan(domain.MonthlySignup, 0), date(2024, 2, 15), 0, false},
		{"daily undefined", dailyPlan(7), date(2024, 2, 15), 0, false},
		{"yearly undefined", yearlyPlan(1), date(2024, 2, 15), 0, false},
		{"leap february before clamped anchor", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 2, 15), 14, true},
		{"on clamped anchor", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 2, 29), 0, true},
		{"on anchor", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 1, 31), 0, true},
		{"before anchor", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 3, 10), 5, true},
		{"after anchor", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 3, 20), 26, true},
		{"after anchor into february", monthlyPlan(domain.MonthlyProrate, 30), date(2024, 1, 31), 29, true},
		{"free plan", monthlyPlan(domain.MonthlyFree, 1), date(2024, 1, 14), 18, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := mustCalculator(t, tt.plan)
			got, ok := calc.DaysUntilBilling(tt.current)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculator_DaysInCycle(t *testing.T) {
	tests := []struct {
		name    string
		plan    *domain.Plan
		current time.Time
		want    int
		wantOK  bool
	}{
		{"lifetime undefined", lifetimePlan(), date(2024, 2, 15), 0, false},
		{"signup undefined", monthlyPlan(domain.MonthlySignup, 0), date(2024, 2, 15), 0, false},
		{"daily interval", dailyPlan(7), date(2024, 2, 15), 7, true},
		{"yearly interval", yearlyPlan(2), date(2024, 2, 15), 2, true},
		{"before anchor uses previous month", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 2, 15), 31, true},
		{"before anchor previous month is february", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 3, 10), 29, true},
		{"before anchor previous month across year", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 1, 10), 31, true},
		{"on anchor", monthlyPlan(domain.MonthlyProrate, 31), date(2024, 2, 29), 0, true},
		{"after anchor uses current month", monthlyPlan(domain.MonthlyProrate, 15), date(2024, 3, 20), 31, true},
		{"free after anchor", monthlyPlan(domain.MonthlyFree, 1), date(2024, 2, 14), 29, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := mustCalculator(t, tt.plan)
			got, ok := calc.DaysInCycle(tt.current)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// On the anchor day both counts are zero so no proration happens at cycle boundaries
func TestCalculator_AnchorDayCountsAreZero(t *testing.T) {
	for monthDay := 1; monthDay <= 31; monthDay++ {
		calc := mustCalculator(t, monthlyPlan(domain.MonthlyProrate, monthDay))

		for month := time.January; month <= time.December; month++ {
			anchor := date(2024, month, CheckDate(monthDay, month, 2024))

			until, ok := calc.DaysUntilBilling(anchor)
			require.True(t, ok)
			inCycle, ok := calc.DaysInCycle(anchor)
			require.True(t, ok)

			assert.Zero(t, until, "monthDay %d anchor %s", monthDay, anchor.Format("2006-01-02"))
			assert.Zero(t, inCycle, "monthDay %d anchor %s", monthDay, anchor.Format("2006-01-02"))
		}
	}
}

func TestCalculator_AdjustPrice(t *testing.T) {
	tests := []struct {
		name    string
		plan    *domain.Plan
		price   string
		current time.Time
		want    string
	}{
		{"daily never prorates", dailyPlan(7), "29.99", date(2024, 2, 15), "29.99"},
		{"free behavior never prorates", monthlyPlan(domain.MonthlyFree, 1), "29.99", date(2024, 2, 15), "29.99"},
		{"signup never prorates", monthlyPlan(domain.MonthlySignup, 0), "29.99", date(2024, 2, 15), "29.99"},
		{"lifetime never prorates", lifetimePlan(), "299.00", date(2024, 2, 15), "299.00"},
		{"leap february scenario", monthlyPlan(domain.MonthlyProrate, 31), "31.00", date(2024, 2, 15), "14.00"},
		{"rounds half up", monthlyPlan(domain.MonthlyProrate, 15), "29.99", date(2024, 3, 10), "5.17"},
		{"after anchor", monthlyPlan(domain.MonthlyProrate, 1), "10.00", date(2024, 1, 14), "5.81"},
		{"anchor day unchanged", monthlyPlan(domain.MonthlyProrate, 15), "29.99", date(2024, 3, 15), "29.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := mustCalculator(t, tt.plan)
			got := calc.AdjustPrice(decimal.RequireFromString(tt.price), tt.current)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestProrate(t *testing.T) {
	t.Run("half up rounding", func(t *testing.T) {
		assert.Equal(t, "0.13", Prorate(decimal.RequireFromString("1.00"), 1, 8).StringFixed(2))
		assert.Equal(t, "0.13", Prorate(decimal.RequireFromString("0.25"), 1, 2).StringFixed(2))
	})

	t.Run("zero total is guarded", func(t *testing.T) {
		price := decimal.RequireFromString("12.34")
		assert.True(t, price.Equal(Prorate(price, 5, 0)))
	})

	t.Run("full cycle charges the full price", func(t *testing.T) {
		price := decimal.RequireFromString("29.99")
		for total := 28; total <= 31; total++ {
			assert.True(t, price.Equal(Prorate(price, total, total)), "total %d", total)
		}
	})

	t.Run("monotone in billable days", func(t *testing.T) {
		price := decimal.RequireFromString("49.95")
		previous := decimal.Zero
		for billable := 0; billable <= 31; billable++ {
			got := Prorate(price, billable, 31)
			assert.True(t, got.GreaterThanOrEqual(previous), "billable %d: %s < %s", billable, got, previous)
			previous = got
		}
	})
}
