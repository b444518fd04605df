package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kevin07696/subscription-engine/internal/adapters/gateway"
	"github.com/kevin07696/subscription-engine/internal/simulation"
	"github.com/kevin07696/subscription-engine/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	runDays         int
	runScript       string
	runFallback     string
	runRecoverAfter int
	runCurrency     string
	runLogLevel     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a service through its renewals on a simulated clock",
	Long: `Run subscribes one service to the plan on --start and advances a simulated
clock one day at a time for --days days, running the renewal batch each day.

Charges are answered from --script in order, then by --fallback. A service
that goes past due can be settled out of band after --recover-after days.

Example:
  simulate run --type monthly --start 2024-01-31 --days 120 --grace 3 --script approve,approve,decline`,
	RunE: runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runDays, "days", 90, "number of simulated days")
	f.StringVar(&runScript, "script", "", "comma separated charge outcomes: approve, decline or error")
	f.StringVar(&runFallback, "fallback", "approve", "charge outcome once the script is drained")
	f.IntVar(&runRecoverAfter, "recover-after", 0, "days after going past due to settle the oldest invoice, 0 never")
	f.StringVar(&runCurrency, "currency", "USD", "invoice currency")
	f.StringVar(&runLogLevel, "log-level", "error", "engine log level")
	rootCmd.AddCommand(runCmd)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	plan, settings, err := flags.buildPlan()
	if err != nil {
		return err
	}
	start, err := flags.startDate()
	if err != nil {
		return err
	}
	script, err := parseScript(runScript)
	if err != nil {
		return err
	}
	fallback, err := gateway.ParseOutcome(runFallback)
	if err != nil {
		return err
	}

	zapLogger, err := logging.New("development", runLogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	report, err := simulation.Run(cmd.Context(), simulation.Options{
		Plan:             plan,
		Settings:         settings,
		Currency:         runCurrency,
		Start:            start,
		Days:             runDays,
		Script:           script,
		Fallback:         fallback,
		RecoverAfterDays: runRecoverAfter,
	}, logging.NewZapLogger(zapLogger))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTATUS\tPERIOD START\tPERIOD END\tRENEWALS\tNOTE")
	for _, ev := range report.Events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			ev.Date.Format(dateLayout), ev.Status,
			formatDate(ev.PeriodStart), formatDate(ev.PeriodEnd),
			ev.CountRenewal, ev.Note)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INVOICE\tPERIOD START\tPERIOD END\tAMOUNT\tPAID")
	for _, inv := range report.Invoices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			inv.ID, inv.PeriodStart.Format(dateLayout), formatDate(inv.PeriodEnd),
			inv.Total.StringFixed(2), inv.IsPaid())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nFinal status: %s after %d charge attempts\n", report.Service.Status, len(report.Charges))
	return nil
}
