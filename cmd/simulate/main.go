package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kevin07696/subscription-engine/internal/adapters/gateway"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// planFlags holds the plan and settings flags shared by every subcommand
type planFlags struct {
	planType       string
	behavior       string
	dayInterval    int
	monthInterval  int
	monthDay       int
	yearInterval   int
	renewalPeriod  int
	price          string
	setupPrice     string
	membership     string
	trialDays      int
	graceDays      int
	trialInclusive bool
	start          string
}

var flags planFlags

var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Explore billing cycles and renewals for a plan",
	Long: `simulate evaluates a plan's billing cadence and runs a single service
through its renewal life on a simulated clock, using in-memory storage and a
scripted payment gateway.

Examples:
  simulate describe --type monthly --behavior monthly_prorate --month-day 1 --price 30
  simulate run --type daily --day-interval 7 --price 5 --days 60 --script approve,decline`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.planType, "type", string(domain.PlanTypeMonthly), "plan type: daily, monthly, yearly or lifetime")
	pf.StringVar(&flags.behavior, "behavior", string(domain.MonthlySignup), "monthly behavior: monthly_signup, monthly_prorate, monthly_free or monthly_none")
	pf.IntVar(&flags.dayInterval, "day-interval", 1, "days between renewals of a daily plan")
	pf.IntVar(&flags.monthInterval, "month-interval", 1, "months between renewals of a monthly_signup plan")
	pf.IntVar(&flags.monthDay, "month-day", 1, "renewal day of month for fixed-day monthly plans")
	pf.IntVar(&flags.yearInterval, "year-interval", 1, "years between renewals of a yearly plan")
	pf.IntVar(&flags.renewalPeriod, "renewals", 0, "number of renewal periods before the service completes, 0 for unlimited")
	pf.StringVar(&flags.price, "price", "10.00", "recurring price")
	pf.StringVar(&flags.setupPrice, "setup-price", "0", "setup price charged on the first invoice")
	pf.StringVar(&flags.membership, "membership-price", "0", "membership fee added to the first invoice")
	pf.IntVar(&flags.trialDays, "trial", -1, "trial days, overriding the global setting when not negative")
	pf.IntVar(&flags.graceDays, "grace", -1, "grace days, overriding the global setting when not negative")
	pf.BoolVar(&flags.trialInclusive, "trial-inclusive", false, "count the trial as part of the first paid period")
	pf.StringVar(&flags.start, "start", time.Now().UTC().Format(dateLayout), "signup date (YYYY-MM-DD)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildPlan assembles the plan and settings described by the flags
func (f *planFlags) buildPlan() (*domain.Plan, domain.Settings, error) {
	settings := domain.DefaultSettings()
	settings.IsTrialInclusive = f.trialInclusive

	price, err := decimal.NewFromString(f.price)
	if err != nil {
		return nil, settings, fmt.Errorf("invalid --price %q: %w", f.price, err)
	}
	setup, err := decimal.NewFromString(f.setupPrice)
	if err != nil {
		return nil, settings, fmt.Errorf("invalid --setup-price %q: %w", f.setupPrice, err)
	}
	membership, err := decimal.NewFromString(f.membership)
	if err != nil {
		return nil, settings, fmt.Errorf("invalid --membership-price %q: %w", f.membership, err)
	}
	settings.MembershipPrice = membership

	plan := &domain.Plan{
		ID:              "cli-plan",
		Name:            "CLI plan",
		Type:            domain.PlanType(strings.ToLower(f.planType)),
		MonthlyBehavior: domain.MonthlyBehavior(strings.ToLower(f.behavior)),
		DayInterval:     f.dayInterval,
		MonthInterval:   f.monthInterval,
		MonthDay:        f.monthDay,
		YearInterval:    f.yearInterval,
		RenewalPeriod:   f.renewalPeriod,
		Price:           price,
		SetupPrice:      setup,
		MembershipPrice: membership,
		IsActive:        true,
	}

	if f.trialDays >= 0 || f.graceDays >= 0 {
		plan.IsCustomMembership = true
		trial, grace := max(f.trialDays, 0), max(f.graceDays, 0)
		plan.TrialDays = &trial
		plan.GraceDays = &grace
	}

	if err := plan.Validate(); err != nil {
		return nil, settings, err
	}
	return plan, settings, nil
}

func (f *planFlags) startDate() (time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, f.start, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --start %q: %w", f.start, err)
	}
	return start, nil
}

// parseScript turns a comma separated list of outcomes into a gateway script
func parseScript(raw string) ([]gateway.Outcome, error) {
	var script []gateway.Outcome
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		outcome, err := gateway.ParseOutcome(part)
		if err != nil {
			return nil, err
		}
		script = append(script, outcome)
	}
	return script, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
