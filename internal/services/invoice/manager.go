package invoice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/cycle"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/observability"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
	"github.com/shopspring/decimal"
)

const (
	kindFirst   = "first"
	kindRenewal = "renewal"
)

// Manager implements ports.InvoiceCollaborator.
// Paid invoices are announced to every registered ports.PaymentObserver.
type Manager struct {
	db        ports.TransactionManager
	invoices  ports.InvoiceRepository
	gateway   ports.PaymentGateway
	clock     timeutil.Clock
	settings  domain.Settings
	currency  string
	logger    ports.Logger
	mu        sync.RWMutex
	observers []ports.PaymentObserver
}

// NewManager creates a new invoice manager
func NewManager(
	db ports.TransactionManager,
	invoices ports.InvoiceRepository,
	gateway ports.PaymentGateway,
	clock timeutil.Clock,
	settings domain.Settings,
	currency string,
	logger ports.Logger,
) *Manager {
	return &Manager{
		db:       db,
		invoices: invoices,
		gateway:  gateway,
		clock:    clock,
		settings: settings,
		currency: currency,
		logger:   logger,
	}
}

// RegisterObserver adds o to the observers notified after payment
func (m *Manager) RegisterObserver(o ports.PaymentObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// IdempotencyKey identifies one charge attempt for a service period. Every
// definitive decline moves the period's next attempt to a new key, so a gateway
// that replays answers per key cannot turn a grace retry into the old decline.
func IdempotencyKey(serviceID string, periodStart time.Time, declines int) string {
	key := fmt.Sprintf("svc-%s-%s", serviceID, periodStart.UTC().Format("2006-01-02"))
	if declines > 0 {
		key = fmt.Sprintf("%s-r%d", key, declines)
	}
	return key
}

// RaiseFirstInvoice raises the invoice that activates a NEW or TRIAL service.
// The first period is prorated, and setup and membership fees are added. While the
// service has not activated, an outstanding first invoice is returned as is.
func (m *Manager) RaiseFirstInvoice(ctx context.Context, service *domain.Service) (*domain.Invoice, error) {
	calc, err := calculatorFor(service)
	if err != nil {
		return nil, err
	}

	periodStart := calc.PeriodStartDate(m.clock.Now())
	if service.Status == domain.ServiceStatusTrial && service.CurrentPeriodEnd != nil {
		periodStart = *service.CurrentPeriodEnd
	}

	total := calc.AdjustPrice(service.Price, periodStart).
		Add(service.Plan.SetupPrice).
		Add(service.Plan.MembershipFee(m.settings))

	return m.raise(ctx, service, calc, periodStart, total, kindFirst)
}

// RaiseRenewalInvoice returns the invoice for the period starting at the service's
// current period end, creating it only if none exists yet
func (m *Manager) RaiseRenewalInvoice(ctx context.Context, service *domain.Service) (*domain.Invoice, error) {
	calc, err := calculatorFor(service)
	if err != nil {
		return nil, err
	}

	periodStart := m.clock.Now()
	if service.CurrentPeriodEnd != nil {
		periodStart = *service.CurrentPeriodEnd
	}

	return m.raise(ctx, service, calc, periodStart, calc.AdjustPrice(service.Price, periodStart), kindRenewal)
}

func (m *Manager) raise(
	ctx context.Context,
	service *domain.Service,
	calc *cycle.Calculator,
	periodStart time.Time,
	total decimal.Decimal,
	kind string,
) (*domain.Invoice, error) {
	var invoice *domain.Invoice
	created := false

	err := m.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if kind == kindFirst {
			pending, err := m.outstandingFirst(ctx, tx, service)
			if err != nil {
				return err
			}
			if pending != nil {
				invoice = pending
				return nil
			}
		}

		existing, err := m.invoices.GetByServicePeriod(ctx, tx, service.ID, periodStart)
		if err == nil {
			invoice = existing
			return nil
		}
		if !domain.IsNotFoundError(err) {
			return fmt.Errorf("find invoice for period: %w", err)
		}

		now := m.clock.Now()
		invoice = &domain.Invoice{
			ID:          uuid.New().String(),
			ServiceID:   service.ID,
			Status:      domain.InvoiceStatusUnpaid,
			Total:       total,
			Currency:    m.currency,
			PeriodStart: periodStart,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if end, ok := calc.PeriodEndDate(periodStart); ok {
			invoice.PeriodEnd = &end
		}

		if err := m.invoices.Create(ctx, tx, invoice); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		m.logger.Error("raise invoice failed",
			ports.String("service_id", service.ID),
			ports.Time("period_start", periodStart),
			ports.Err(err))
		return nil, err
	}

	if created {
		observability.RecordInvoiceRaised(kind)
		m.logger.Info("invoice raised",
			ports.String("invoice_id", invoice.ID),
			ports.String("service_id", service.ID),
			ports.String("kind", kind),
			ports.String("total", invoice.Total.StringFixed(2)),
			ports.Time("period_start", periodStart))
	}

	return invoice, nil
}

// outstandingFirst returns the unpaid invoice of a service that has not activated
// yet. Such a service only ever has first invoices.
func (m *Manager) outstandingFirst(ctx context.Context, tx pgx.Tx, service *domain.Service) (*domain.Invoice, error) {
	if service.Status != domain.ServiceStatusNew && service.Status != domain.ServiceStatusTrial {
		return nil, nil
	}
	invoices, err := m.invoices.ListByService(ctx, tx, service.ID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	for _, inv := range invoices {
		if inv.IsOutstanding() {
			return inv, nil
		}
	}
	return nil, nil
}

// AttemptAutomaticPayment charges the service's stored payment token for invoice.
// Paid invoices report success without charging again. A decline returns false with
// a nil error and is counted on the invoice; transport failures return the error
// and keep the attempt's idempotency key.
func (m *Manager) AttemptAutomaticPayment(ctx context.Context, invoice *domain.Invoice, service *domain.Service) (bool, error) {
	switch {
	case invoice.IsPaid():
		return true, nil
	case !invoice.IsOutstanding():
		return false, nil
	case invoice.Total.IsZero():
		observability.RecordInvoicePayment("free", 0, invoice.Currency)
		return true, m.settle(ctx, invoice, "free")
	case service.PaymentToken == "":
		m.logger.Warn("no stored payment method, automatic payment skipped",
			ports.String("invoice_id", invoice.ID),
			ports.String("service_id", service.ID))
		observability.RecordInvoicePayment("declined", 0, invoice.Currency)
		return false, nil
	}

	result, err := m.gateway.Charge(ctx, &ports.ChargeRequest{
		Amount:         invoice.Total,
		Currency:       invoice.Currency,
		Token:          service.PaymentToken,
		IdempotencyKey: IdempotencyKey(service.ID, invoice.PeriodStart, invoice.DeclineCount),
		Metadata: map[string]string{
			"service_id":     service.ID,
			"invoice_id":     invoice.ID,
			"billing_period": invoice.PeriodStart.Format("2006-01-02"),
		},
	})
	if err != nil {
		observability.RecordInvoicePayment("failed", 0, invoice.Currency)
		m.logger.Error("automatic payment failed",
			ports.String("invoice_id", invoice.ID),
			ports.String("service_id", service.ID),
			ports.Err(err))
		return false, fmt.Errorf("charge invoice %s: %w", invoice.ID, err)
	}

	if !result.Approved {
		observability.RecordInvoicePayment("declined", 0, invoice.Currency)
		m.logger.Warn("automatic payment declined",
			ports.String("invoice_id", invoice.ID),
			ports.String("service_id", service.ID),
			ports.String("response_code", result.ResponseCode),
			ports.String("message", result.Message))
		return false, m.recordDecline(ctx, invoice)
	}

	observability.RecordInvoicePayment("paid", invoice.Total.Shift(2).IntPart(), invoice.Currency)
	return true, m.settle(ctx, invoice, result.TransactionID)
}

// MarkPaid records an out-of-band payment of invoiceID
func (m *Manager) MarkPaid(ctx context.Context, invoiceID, reference string) (*domain.Invoice, error) {
	invoice, err := m.invoices.GetByID(ctx, nil, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if invoice.IsPaid() {
		return invoice, nil
	}
	if !invoice.IsOutstanding() {
		return nil, domain.NewDomainError(domain.ErrorCodeInvalidTransition, "invoice is void").
			WithDetail("invoice_id", invoiceID)
	}

	observability.RecordInvoicePayment("paid", invoice.Total.Shift(2).IntPart(), invoice.Currency)
	if err := m.settle(ctx, invoice, reference); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (m *Manager) recordDecline(ctx context.Context, invoice *domain.Invoice) error {
	snapshot := *invoice
	invoice.RecordDecline(m.clock.Now())

	err := m.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return m.invoices.Update(ctx, tx, invoice)
	})
	if err != nil {
		*invoice = snapshot
		return fmt.Errorf("record decline of invoice %s: %w", invoice.ID, err)
	}
	return nil
}

// settle persists the payment, then notifies every observer
func (m *Manager) settle(ctx context.Context, invoice *domain.Invoice, reference string) error {
	snapshot := *invoice
	invoice.MarkPaid(reference, m.clock.Now())

	err := m.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return m.invoices.Update(ctx, tx, invoice)
	})
	if err != nil {
		*invoice = snapshot
		return fmt.Errorf("mark invoice paid: %w", err)
	}

	m.logger.Info("invoice paid",
		ports.String("invoice_id", invoice.ID),
		ports.String("service_id", invoice.ServiceID),
		ports.String("reference", reference))

	m.mu.RLock()
	observers := append([]ports.PaymentObserver(nil), m.observers...)
	m.mu.RUnlock()

	var errs []error
	for _, o := range observers {
		if err := o.InvoiceAfterPayment(ctx, invoice); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("after payment of invoice %s: %w", invoice.ID, err)
	}
	return nil
}

func calculatorFor(service *domain.Service) (*cycle.Calculator, error) {
	if service.Plan == nil {
		return nil, domain.InvalidPlanConfiguration("service %s has no plan attached", service.ID)
	}
	return cycle.NewCalculator(service.Plan)
}
