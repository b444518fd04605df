package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/observability"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

// DefaultLockTTL bounds how long one worker may hold a service
const DefaultLockTTL = 2 * time.Minute

// Engine drives services through payment, renewal, grace and lapse.
// It assumes at most one writer per service; ProcessDueRenewals and
// out-of-band payments enforce that through the ServiceLocker.
type Engine struct {
	clock     timeutil.Clock
	settings  domain.Settings
	lifecycle ports.ServiceLifecycle
	invoices  ports.InvoiceCollaborator
	plans     ports.PlanRepository
	services  ports.ServiceRepository
	locker    ports.ServiceLocker
	lockTTL   time.Duration
	logger    ports.Logger
}

// NewEngine creates a new renewal engine
func NewEngine(
	clock timeutil.Clock,
	settings domain.Settings,
	lifecycle ports.ServiceLifecycle,
	invoices ports.InvoiceCollaborator,
	plans ports.PlanRepository,
	services ports.ServiceRepository,
	locker ports.ServiceLocker,
	logger ports.Logger,
) *Engine {
	return &Engine{
		clock:     clock,
		settings:  settings,
		lifecycle: lifecycle,
		invoices:  invoices,
		plans:     plans,
		services:  services,
		locker:    locker,
		lockTTL:   DefaultLockTTL,
		logger:    logger,
	}
}

// SetLockTTL overrides DefaultLockTTL
func (e *Engine) SetLockTTL(ttl time.Duration) {
	if ttl > 0 {
		e.lockTTL = ttl
	}
}

// inflightPayment carries the service whose invoice is being paid by the engine, so the
// payment hook transitions the same instance instead of reloading it
type inflightPayment struct {
	service *domain.Service
	handled bool
}

type inflightKey struct{}

func withInflight(ctx context.Context, p *inflightPayment) context.Context {
	return context.WithValue(ctx, inflightKey{}, p)
}

func inflightFor(ctx context.Context, serviceID string) (*inflightPayment, bool) {
	p, ok := ctx.Value(inflightKey{}).(*inflightPayment)
	if !ok || p.service.ID != serviceID {
		return nil, false
	}
	return p, true
}

// InvoiceAfterPayment is the hook run once an invoice has been paid.
// Invoices that do not belong to a known service are ignored.
func (e *Engine) InvoiceAfterPayment(ctx context.Context, invoice *domain.Invoice) error {
	if p, ok := inflightFor(ctx, invoice.ServiceID); ok {
		p.handled = true
		return e.ReceivePayment(ctx, p.service, invoice)
	}

	release, err := e.acquire(ctx, invoice.ServiceID)
	if err != nil {
		return err
	}
	defer e.releaseLock(ctx, invoice.ServiceID, release)

	service, err := e.services.GetByID(ctx, nil, invoice.ServiceID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			e.logger.Warn("paid invoice has no related service",
				ports.String("invoice_id", invoice.ID),
				ports.String("service_id", invoice.ServiceID))
			return nil
		}
		return fmt.Errorf("load service for invoice %s: %w", invoice.ID, err)
	}

	return e.ReceivePayment(ctx, service, invoice)
}

// ReceivePayment applies a successful payment of invoice to service. A payment for
// a period the service has already moved past is ignored.
func (e *Engine) ReceivePayment(ctx context.Context, service *domain.Service, invoice *domain.Invoice) error {
	if err := e.attachPlan(ctx, service); err != nil {
		return err
	}

	if invoice != nil && coversPeriod(service, invoice) {
		e.logger.Info("payment for a period already covered ignored",
			ports.String("service_id", service.ID),
			ports.String("invoice_id", invoice.ID),
			ports.Time("period_start", invoice.PeriodStart))
		return nil
	}

	action, err := nextAction(service.Status, EventPaymentReceived)
	if err != nil {
		return err
	}

	if (action == ActionRenew || action == ActionRenewWithCatchUp) && service.IsLifetime() {
		action = ActionNone
	}

	fields := []ports.Field{
		ports.String("service_id", service.ID),
		ports.String("status", string(service.Status)),
		ports.String("action", action.String()),
	}
	if invoice != nil {
		fields = append(fields, ports.String("invoice_id", invoice.ID))
	}
	e.logger.Debug("payment received", fields...)

	switch action {
	case ActionActivate:
		return e.activate(ctx, service)
	case ActionRenew:
		if err := e.lifecycle.Renew(ctx, service); err != nil {
			return domain.CollaboratorFailure("renew service", err)
		}
	case ActionRenewWithCatchUp:
		if err := e.lifecycle.Renew(ctx, service); err != nil {
			return domain.CollaboratorFailure("renew service", err)
		}
		return e.catchUp(ctx, service)
	}

	return nil
}

// activate folds a trial into the first period for trial inclusive plans
func (e *Engine) activate(ctx context.Context, service *domain.Service) error {
	snapshot := service.Clone()

	if service.Status == domain.ServiceStatusTrial && service.Plan.IsTrialInclusive(e.settings) && service.CurrentPeriodEnd != nil {
		delay := *service.CurrentPeriodEnd
		service.DelayActivatedAt = &delay
	}
	service.CountRenewal = 1

	if err := e.lifecycle.Activate(ctx, service); err != nil {
		service.Restore(snapshot)
		return domain.CollaboratorFailure("activate service", err)
	}
	return nil
}

// catchUp renews period after period while the service's period has already ended.
// It stops at the first unpaid period and never renews more than MaxCatchUpRenewals times.
func (e *Engine) catchUp(ctx context.Context, service *domain.Service) error {
	limit := e.settings.MaxCatchUpRenewals
	if limit <= 0 {
		limit = domain.DefaultSettings().MaxCatchUpRenewals
	}

	renewed := 0
	defer func() { observability.RecordCatchUp(renewed) }()

	for service.HasPeriodEnded(e.clock.Now()) {
		if renewed >= limit {
			e.logger.Warn("catch-up limit reached",
				ports.String("service_id", service.ID),
				ports.Int("renewed", renewed),
				ports.Time("period_end", *service.CurrentPeriodEnd))
			return domain.NewDomainError(domain.ErrorCodeCatchUpLimit, "service is still behind after catching up").
				WithDetail("service_id", service.ID).
				WithDetail("renewed", renewed)
		}

		outcome, err := e.attemptRenew(ctx, service)
		if err != nil {
			return err
		}
		if outcome != domain.RenewalOutcomeRenewed {
			break
		}
		renewed++
	}

	if renewed > 0 {
		e.logger.Info("service caught up",
			ports.String("service_id", service.ID),
			ports.Int("renewed", renewed))
	}
	return nil
}

// AttemptRenewService raises the invoice for the period following an ended period and
// tries to pay it. A failed payment moves the service to grace or past due.
func (e *Engine) AttemptRenewService(ctx context.Context, service *domain.Service) (domain.RenewalOutcome, error) {
	if err := e.attachPlan(ctx, service); err != nil {
		return domain.RenewalOutcomeSkipped, err
	}

	outcome, err := e.attemptRenew(ctx, service)

	label := string(outcome)
	if err != nil {
		label = "failed"
	}
	observability.RecordRenewalAttempt(string(service.Plan.Type), label)

	return outcome, err
}

func (e *Engine) attemptRenew(ctx context.Context, service *domain.Service) (domain.RenewalOutcome, error) {
	now := e.clock.Now()

	switch {
	case !renewable(service.Status), service.IsLifetime(), !service.HasPeriodEnded(now):
		return domain.RenewalOutcomeSkipped, nil
	case service.RenewalLimitReached():
		if err := e.lifecycle.Cancel(ctx, service, domain.ReasonRenewalLimit); err != nil {
			return domain.RenewalOutcomeSkipped, domain.CollaboratorFailure("complete service", err)
		}
		return domain.RenewalOutcomeCompleted, nil
	}

	invoice, err := e.invoices.RaiseRenewalInvoice(ctx, service)
	if err != nil {
		return domain.RenewalOutcomeSkipped, domain.CollaboratorFailure("raise renewal invoice", err)
	}

	if invoice.IsPaid() {
		return e.settledElsewhere(ctx, service, invoice)
	}

	periodEnd := *service.CurrentPeriodEnd
	p := &inflightPayment{service: service}
	paid, err := e.invoices.AttemptAutomaticPayment(withInflight(ctx, p), invoice, service)

	switch {
	case paid && err != nil:
		outcome := domain.RenewalOutcomeSkipped
		if service.CurrentPeriodEnd != nil && service.CurrentPeriodEnd.After(periodEnd) {
			outcome = domain.RenewalOutcomeRenewed
		}
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return outcome, err
		}
		return outcome, domain.CollaboratorFailure("apply renewal payment", err)
	case paid:
		if !p.handled {
			if err := e.ReceivePayment(ctx, service, invoice); err != nil {
				return domain.RenewalOutcomeSkipped, err
			}
		}
		if service.CurrentPeriodEnd == nil || !service.CurrentPeriodEnd.After(periodEnd) {
			return domain.RenewalOutcomeSkipped, nil
		}
		e.logger.Info("service renewed",
			ports.String("service_id", service.ID),
			ports.String("invoice_id", invoice.ID),
			ports.Time("previous_period_end", periodEnd))
		return domain.RenewalOutcomeRenewed, nil
	}

	outcome, failErr := e.failRenewal(ctx, service)
	if err != nil {
		return outcome, errors.Join(domain.CollaboratorFailure("automatic payment", err), failErr)
	}
	return outcome, failErr
}

// settledElsewhere handles a renewal invoice that is already paid. If the stored service
// has moved past the invoice's period the renewal was applied already; otherwise the
// payment was recorded without being applied and is applied now.
func (e *Engine) settledElsewhere(ctx context.Context, service *domain.Service, invoice *domain.Invoice) (domain.RenewalOutcome, error) {
	stored, err := e.services.GetByID(ctx, nil, service.ID)
	if err != nil {
		return domain.RenewalOutcomeSkipped, fmt.Errorf("reload service: %w", err)
	}

	if coversPeriod(stored, invoice) {
		e.logger.Info("renewal invoice already paid and applied",
			ports.String("service_id", service.ID),
			ports.String("invoice_id", invoice.ID))
		return domain.RenewalOutcomeSkipped, nil
	}

	if err := e.ReceivePayment(ctx, service, invoice); err != nil {
		return domain.RenewalOutcomeSkipped, err
	}
	return domain.RenewalOutcomeRenewed, nil
}

// coversPeriod reports whether an activated service has moved past the period
// invoice was raised for
func coversPeriod(service *domain.Service, invoice *domain.Invoice) bool {
	if service.Status == domain.ServiceStatusNew || service.Status == domain.ServiceStatusTrial {
		return false
	}
	return service.CurrentPeriodEnd != nil && service.CurrentPeriodEnd.After(invoice.PeriodStart)
}

// failRenewal moves the service to grace when the plan grants one and it has not run out,
// otherwise to past due
func (e *Engine) failRenewal(ctx context.Context, service *domain.Service) (domain.RenewalOutcome, error) {
	action, err := nextAction(service.Status, EventRenewalFailed)
	if err != nil {
		return domain.RenewalOutcomeSkipped, err
	}
	if action != ActionFailRenewal {
		return domain.RenewalOutcomeSkipped, nil
	}

	graceDays := service.Plan.GracePeriod(e.settings)

	switch {
	case graceDays > 0 && !e.graceExpired(service, graceDays):
		if err := e.lifecycle.StartGrace(ctx, service, domain.ReasonPaymentFailed); err != nil {
			return domain.RenewalOutcomeSkipped, domain.CollaboratorFailure("start grace period", err)
		}
		return domain.RenewalOutcomeGrace, nil
	case graceDays > 0:
		if err := e.lifecycle.MarkPastDue(ctx, service, domain.ReasonGraceExpired); err != nil {
			return domain.RenewalOutcomeSkipped, domain.CollaboratorFailure("mark past due", err)
		}
	default:
		if err := e.lifecycle.MarkPastDue(ctx, service, domain.ReasonPaymentFailed); err != nil {
			return domain.RenewalOutcomeSkipped, domain.CollaboratorFailure("mark past due", err)
		}
	}
	return domain.RenewalOutcomePastDue, nil
}

// graceExpired reports whether a service already in grace has used up graceDays after its period end
func (e *Engine) graceExpired(service *domain.Service, graceDays int) bool {
	if service.Status != domain.ServiceStatusGrace || service.CurrentPeriodEnd == nil {
		return false
	}
	return !e.clock.Now().Before(service.CurrentPeriodEnd.AddDate(0, 0, graceDays))
}

func (e *Engine) attachPlan(ctx context.Context, service *domain.Service) error {
	if service.Plan != nil {
		return nil
	}
	plan, err := e.plans.GetByID(ctx, nil, service.PlanID)
	if err != nil {
		return fmt.Errorf("load plan %s: %w", service.PlanID, err)
	}
	service.Plan = plan
	return nil
}

func (e *Engine) acquire(ctx context.Context, serviceID string) (func(context.Context) error, error) {
	if e.locker == nil {
		return nil, nil
	}
	return e.locker.Acquire(ctx, serviceID, e.lockTTL)
}

func (e *Engine) releaseLock(ctx context.Context, serviceID string, release func(context.Context) error) {
	if release == nil {
		return
	}
	if err := release(context.WithoutCancel(ctx)); err != nil {
		e.logger.Warn("release service lock failed",
			ports.String("service_id", serviceID),
			ports.Err(err))
	}
}
