package ports

import (
	"context"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
)

// ServiceLifecycle persists status and period changes of a service.
// Each call either commits the full change or leaves the service untouched.
type ServiceLifecycle interface {
	// Subscribe creates a service for userID on plan in NEW, or TRIAL when the plan grants one
	Subscribe(ctx context.Context, userID, paymentToken string, plan *domain.Plan) (*domain.Service, error)

	// Activate starts the first paid period
	Activate(ctx context.Context, service *domain.Service) error

	// Renew advances the service to the period following the current one
	Renew(ctx context.Context, service *domain.Service) error

	StartGrace(ctx context.Context, service *domain.Service, reason string) error

	MarkPastDue(ctx context.Context, service *domain.Service, reason string) error

	Cancel(ctx context.Context, service *domain.Service, reason string) error
}

// InvoiceCollaborator raises and settles renewal invoices.
// Both operations are idempotent per billing period.
type InvoiceCollaborator interface {
	// RaiseRenewalInvoice returns the invoice for the period following the current one,
	// creating it only when none exists yet
	RaiseRenewalInvoice(ctx context.Context, service *domain.Service) (*domain.Invoice, error)

	// AttemptAutomaticPayment charges the service's stored payment token.
	// A decline is reported as false with a nil error.
	AttemptAutomaticPayment(ctx context.Context, invoice *domain.Invoice, service *domain.Service) (bool, error)
}

// PaymentObserver is notified after an invoice has been paid
type PaymentObserver interface {
	InvoiceAfterPayment(ctx context.Context, invoice *domain.Invoice) error
}

// ServiceLocker serializes writers per service across processes
type ServiceLocker interface {
	// Acquire returns domain.ErrServiceLocked when another holder owns the lock
	Acquire(ctx context.Context, serviceID string, ttl time.Duration) (release func(context.Context) error, err error)
}
