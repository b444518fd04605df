package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kevin07696/subscription-engine/internal/domain/cycle"
	"github.com/spf13/cobra"
)

var describePeriods int

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Describe a plan and list its upcoming billing periods",
	Long: `Describe prints the human readable cadence of a plan, the first invoice
amount for a signup on --start, and the next billing periods.

Example:
  simulate describe --type monthly --behavior monthly_prorate --month-day 15 --start 2024-01-20`,
	RunE: runDescribe,
}

func init() {
	describeCmd.Flags().IntVar(&describePeriods, "periods", 6, "number of billing periods to list")
	rootCmd.AddCommand(describeCmd)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	plan, settings, err := flags.buildPlan()
	if err != nil {
		return err
	}
	start, err := flags.startDate()
	if err != nil {
		return err
	}

	calc, err := cycle.NewCalculator(plan)
	if err != nil {
		return err
	}

	fmt.Println(cycle.Describe(plan, settings))
	fmt.Println()

	periodStart := calc.PeriodStartDate(start)
	if trial := plan.TrialPeriod(settings); trial > 0 {
		periodStart = start.AddDate(0, 0, trial)
		fmt.Printf("Trial ends:      %s\n", periodStart.Format(dateLayout))
	}

	first := calc.AdjustPrice(plan.Price, periodStart).Add(plan.SetupPrice).Add(plan.MembershipFee(settings))
	fmt.Printf("First invoice:   %s\n", first.StringFixed(2))
	if days, ok := calc.DaysUntilBilling(periodStart); ok {
		fmt.Printf("Days to billing: %d\n", days)
	}
	if days, ok := calc.DaysInCycle(periodStart); ok {
		fmt.Printf("Days in cycle:   %d\n", days)
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTART\tEND")

	for i := 1; i <= describePeriods; i++ {
		end, ok := calc.PeriodEndDate(periodStart)
		if !ok {
			fmt.Fprintf(w, "%d\t%s\tnever\n", i, periodStart.Format(dateLayout))
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, periodStart.Format(dateLayout), end.Format(dateLayout))
		if plan.RenewalPeriod > 0 && i >= plan.RenewalPeriod {
			break
		}
		periodStart = end
	}
	return w.Flush()
}
