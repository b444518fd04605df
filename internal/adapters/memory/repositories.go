package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
)

var (
	_ ports.PlanRepository      = (*PlanRepository)(nil)
	_ ports.ServiceRepository   = (*ServiceRepository)(nil)
	_ ports.InvoiceRepository   = (*InvoiceRepository)(nil)
	_ ports.StatusLogRepository = (*StatusLogRepository)(nil)
)

// PlanRepository implements ports.PlanRepository
type PlanRepository struct {
	store *Store
}

func (r *PlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.Plan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if _, exists := r.store.data.plans[plan.ID]; exists {
		return fmt.Errorf("create plan: plan %s already exists", plan.ID)
	}
	r.store.data.plans[plan.ID] = clonePlan(plan)
	return nil
}

func (r *PlanRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Plan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	plan, ok := r.store.data.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return clonePlan(plan), nil
}

func (r *PlanRepository) ListActive(ctx context.Context, db ports.DBTX) ([]*domain.Plan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	plans := make([]*domain.Plan, 0, len(r.store.data.plans))
	for _, p := range r.store.data.plans {
		if p.IsActive {
			plans = append(plans, clonePlan(p))
		}
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].Name < plans[j].Name })
	return plans, nil
}

// ServiceRepository implements ports.ServiceRepository
type ServiceRepository struct {
	store *Store
}

func (r *ServiceRepository) Create(ctx context.Context, tx ports.DBTX, service *domain.Service) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if service.ID == "" {
		service.ID = uuid.New().String()
	}
	if _, exists := r.store.data.services[service.ID]; exists {
		return fmt.Errorf("create service: service %s already exists", service.ID)
	}
	r.store.data.services[service.ID] = detach(service)
	return nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Service, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	svc, ok := r.store.data.services[id]
	if !ok {
		return nil, domain.ErrServiceNotFound
	}
	return detach(svc), nil
}

func (r *ServiceRepository) Update(ctx context.Context, tx ports.DBTX, service *domain.Service) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.services[service.ID]; !ok {
		return domain.ErrServiceNotFound
	}
	r.store.data.services[service.ID] = detach(service)
	return nil
}

func (r *ServiceRepository) ListDueForRenewal(ctx context.Context, db ports.DBTX, asOf time.Time, limit int32) ([]*domain.Service, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	due := make([]*domain.Service, 0)
	for _, svc := range r.store.data.services {
		if svc.Status != domain.ServiceStatusActive && svc.Status != domain.ServiceStatusGrace {
			continue
		}
		if svc.HasPeriodEnded(asOf) {
			due = append(due, detach(svc))
		}
	}

	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].CurrentPeriodEnd, due[j].CurrentPeriodEnd
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return due[i].ID < due[j].ID
	})

	if limit > 0 && len(due) > int(limit) {
		due = due[:limit]
	}
	return due, nil
}

// InvoiceRepository implements ports.InvoiceRepository
type InvoiceRepository struct {
	store *Store
}

func (r *InvoiceRepository) Create(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if _, exists := r.store.data.invoices[invoice.ID]; exists {
		return fmt.Errorf("create invoice: invoice %s already exists", invoice.ID)
	}
	r.store.data.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Invoice, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	inv, ok := r.store.data.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return cloneInvoice(inv), nil
}

func (r *InvoiceRepository) GetByServicePeriod(ctx context.Context, db ports.DBTX, serviceID string, periodStart time.Time) (*domain.Invoice, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, inv := range r.store.data.invoices {
		if inv.ServiceID == serviceID && inv.Status != domain.InvoiceStatusVoid && inv.PeriodStart.Equal(periodStart) {
			return cloneInvoice(inv), nil
		}
	}
	return nil, domain.ErrInvoiceNotFound
}

func (r *InvoiceRepository) Update(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.invoices[invoice.ID]; !ok {
		return domain.ErrInvoiceNotFound
	}
	r.store.data.invoices[invoice.ID] = cloneInvoice(invoice)
	return nil
}

func (r *InvoiceRepository) ListByService(ctx context.Context, db ports.DBTX, serviceID string) ([]*domain.Invoice, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	invoices := make([]*domain.Invoice, 0)
	for _, inv := range r.store.data.invoices {
		if inv.ServiceID == serviceID {
			invoices = append(invoices, cloneInvoice(inv))
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].PeriodStart.Before(invoices[j].PeriodStart)
	})
	return invoices, nil
}

// StatusLogRepository implements ports.StatusLogRepository
type StatusLogRepository struct {
	store *Store
}

func (r *StatusLogRepository) Create(ctx context.Context, tx ports.DBTX, entry *domain.StatusLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	c := *entry
	r.store.data.logs = append(r.store.data.logs, &c)
	return nil
}

func (r *StatusLogRepository) ListByService(ctx context.Context, db ports.DBTX, serviceID string) ([]*domain.StatusLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	logs := make([]*domain.StatusLog, 0)
	for _, entry := range r.store.data.logs {
		if entry.ServiceID == serviceID {
			c := *entry
			logs = append(logs, &c)
		}
	}
	return logs, nil
}
