package ports

import (
	"context"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
)

// PlanRepository defines the interface for plan persistence
type PlanRepository interface {
	Create(ctx context.Context, tx DBTX, plan *domain.Plan) error

	// GetByID returns domain.ErrPlanNotFound when no plan matches
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Plan, error)

	ListActive(ctx context.Context, db DBTX) ([]*domain.Plan, error)
}

// ServiceRepository defines the interface for service persistence.
// Loaded services carry PlanID only; callers attach the plan.
type ServiceRepository interface {
	Create(ctx context.Context, tx DBTX, service *domain.Service) error

	// GetByID returns domain.ErrServiceNotFound when no service matches
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Service, error)

	Update(ctx context.Context, tx DBTX, service *domain.Service) error

	// ListDueForRenewal lists active and grace services whose period ended at or before asOf,
	// oldest period end first
	ListDueForRenewal(ctx context.Context, db DBTX, asOf time.Time, limit int32) ([]*domain.Service, error)
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	Create(ctx context.Context, tx DBTX, invoice *domain.Invoice) error

	// GetByID returns domain.ErrInvoiceNotFound when no invoice matches
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Invoice, error)

	// GetByServicePeriod returns the non-void invoice raised for the period starting at periodStart,
	// or domain.ErrInvoiceNotFound
	GetByServicePeriod(ctx context.Context, db DBTX, serviceID string, periodStart time.Time) (*domain.Invoice, error)

	Update(ctx context.Context, tx DBTX, invoice *domain.Invoice) error

	ListByService(ctx context.Context, db DBTX, serviceID string) ([]*domain.Invoice, error)
}

// StatusLogRepository records the audit trail of service transitions
type StatusLogRepository interface {
	Create(ctx context.Context, tx DBTX, entry *domain.StatusLog) error

	// ListByService returns the log oldest first
	ListByService(ctx context.Context, db DBTX, serviceID string) ([]*domain.StatusLog, error)
}
