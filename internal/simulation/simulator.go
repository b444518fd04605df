// Package simulation runs one service through its billing life on a simulated clock,
// wired to the in-memory adapters and a scripted payment gateway.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/subscription-engine/internal/adapters/gateway"
	"github.com/kevin07696/subscription-engine/internal/adapters/memory"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/internal/services/invoice"
	"github.com/kevin07696/subscription-engine/internal/services/lifecycle"
	"github.com/kevin07696/subscription-engine/internal/services/subscription"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

// Options configures one simulation run
type Options struct {
	Plan     *domain.Plan
	Settings domain.Settings
	Currency string

	Start time.Time
	Days  int

	// Script answers charges in order; Fallback answers once it is drained
	Script   []gateway.Outcome
	Fallback gateway.Outcome

	// RecoverAfterDays settles the oldest outstanding invoice out of band this many
	// days after the service goes past due. Zero never recovers.
	RecoverAfterDays int
}

// Event is one observed change of the service
type Event struct {
	Date         time.Time
	Status       domain.ServiceStatus
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	CountRenewal int
	Note         string
}

// Report is the outcome of a run
type Report struct {
	Service  *domain.Service
	Events   []Event
	Invoices []*domain.Invoice
	Charges  []ports.ChargeRequest
}

// Run subscribes a service at opts.Start and advances the clock one day at a time,
// running the renewal batch each day
func Run(ctx context.Context, opts Options, logger ports.Logger) (*Report, error) {
	if opts.Plan == nil {
		return nil, errors.New("plan is required")
	}
	if err := opts.Plan.Validate(); err != nil {
		return nil, err
	}
	if opts.Days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", opts.Days)
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}

	store := memory.NewStore()
	clock := timeutil.NewSimulatedClock(timeutil.StartOfDay(opts.Start))
	gw := gateway.NewScriptedGateway(clock, opts.Fallback)
	gw.Queue(opts.Script...)

	services := lifecycle.NewServiceManager(store, store.Services(), store.StatusLogs(), clock, opts.Settings, logger)
	invoices := invoice.NewManager(store, store.Invoices(), gw, clock, opts.Settings, opts.Currency, logger)
	engine := subscription.NewEngine(clock, opts.Settings, services, invoices,
		store.Plans(), store.Services(), memory.NewLocker(clock), logger)
	invoices.RegisterObserver(engine)

	plan := opts.Plan
	if plan.ID == "" {
		plan.ID = "simulated-plan"
	}
	if err := store.Plans().Create(ctx, nil, plan); err != nil {
		return nil, fmt.Errorf("store plan: %w", err)
	}

	svc, err := services.Subscribe(ctx, "simulated-user", "tok_simulated", plan)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	report := &Report{}
	last := Event{}
	var pastDueSince *time.Time

	for day := 0; day < opts.Days; day++ {
		if day > 0 {
			clock.AdvanceDays(1)
		}
		now := clock.Now()
		note := ""

		current, err := store.Services().GetByID(ctx, nil, svc.ID)
		if err != nil {
			return nil, err
		}
		current.Plan = plan

		switch {
		case current.Status == domain.ServiceStatusNew,
			current.Status == domain.ServiceStatusTrial && current.HasPeriodEnded(now):
			if err := payFirstInvoice(ctx, invoices, current); err != nil {
				note = "first payment: " + err.Error()
			}

		case current.Status == domain.ServiceStatusPastDue && opts.RecoverAfterDays > 0 && pastDueSince != nil:
			if timeutil.DaysBetween(*pastDueSince, now) >= opts.RecoverAfterDays {
				if ref, err := settleOldest(ctx, store, invoices, current.ID); err != nil {
					note = "recovery: " + err.Error()
				} else if ref != "" {
					note = "settled out of band"
				}
			}
		}

		result, err := engine.ProcessDueRenewals(ctx, 10)
		if err != nil {
			return nil, fmt.Errorf("renewal batch on %s: %w", now.Format("2006-01-02"), err)
		}
		for _, re := range result.Errors {
			note = re.Code + ": " + re.Error
		}

		current, err = store.Services().GetByID(ctx, nil, svc.ID)
		if err != nil {
			return nil, err
		}
		switch {
		case current.Status != domain.ServiceStatusPastDue:
			pastDueSince = nil
		case pastDueSince == nil:
			since := now
			pastDueSince = &since
		}

		event := Event{
			Date:         now,
			Status:       current.Status,
			PeriodStart:  current.CurrentPeriodStart,
			PeriodEnd:    current.CurrentPeriodEnd,
			CountRenewal: current.CountRenewal,
			Note:         note,
		}
		if day == 0 || changed(last, event) {
			if event.Note == "" {
				event.Note = current.StatusReason
			}
			report.Events = append(report.Events, event)
			last = event
		}
	}

	err = store.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		final, err := store.Services().GetByID(ctx, tx, svc.ID)
		if err != nil {
			return err
		}
		final.Plan = plan
		report.Service = final

		report.Invoices, err = store.Invoices().ListByService(ctx, tx, svc.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read final state: %w", err)
	}
	report.Charges = gw.Charges()

	return report, nil
}

func payFirstInvoice(ctx context.Context, invoices *invoice.Manager, service *domain.Service) error {
	first, err := invoices.RaiseFirstInvoice(ctx, service)
	if err != nil {
		return err
	}
	_, err = invoices.AttemptAutomaticPayment(ctx, first, service)
	return err
}

// settleOldest marks the oldest outstanding invoice paid and returns its reference
func settleOldest(ctx context.Context, store *memory.Store, invoices *invoice.Manager, serviceID string) (string, error) {
	list, err := store.Invoices().ListByService(ctx, nil, serviceID)
	if err != nil {
		return "", err
	}
	for _, inv := range list {
		if inv.IsOutstanding() {
			ref := "manual-" + inv.PeriodStart.Format("20060102")
			if _, err := invoices.MarkPaid(ctx, inv.ID, ref); err != nil {
				return "", err
			}
			return ref, nil
		}
	}
	return "", nil
}

func changed(a, b Event) bool {
	return a.Status != b.Status ||
		a.CountRenewal != b.CountRenewal ||
		!sameTime(a.PeriodEnd, b.PeriodEnd) ||
		b.Note != ""
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
