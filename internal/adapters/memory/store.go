// Package memory provides in-process implementations of the persistence ports.
// It backs the simulator and integration tests; production uses the postgres adapter.
package memory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
)

// Store keeps plans, services, invoices and status logs in memory.
// Transactions are serialized and roll back by restoring a snapshot.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data dataset
}

type dataset struct {
	plans    map[string]*domain.Plan
	services map[string]*domain.Service
	invoices map[string]*domain.Invoice
	logs     []*domain.StatusLog
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: dataset{
		plans:    make(map[string]*domain.Plan),
		services: make(map[string]*domain.Service),
		invoices: make(map[string]*domain.Invoice),
	}}
}

// Ensure Store implements ports.TransactionManager
var _ ports.TransactionManager = (*Store)(nil)

// WithTransaction runs fn with a nil transaction; repositories write straight to the store.
// Any error or panic from fn restores the store to its state before fn ran.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
	}()

	if err := fn(ctx, nil); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// WithReadOnlyTransaction runs fn under the transaction lock so it sees a consistent store
func (s *Store) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, nil)
}

func (s *Store) snapshot() dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := dataset{
		plans:    make(map[string]*domain.Plan, len(s.data.plans)),
		services: make(map[string]*domain.Service, len(s.data.services)),
		invoices: make(map[string]*domain.Invoice, len(s.data.invoices)),
		logs:     append([]*domain.StatusLog(nil), s.data.logs...),
	}
	for id, p := range s.data.plans {
		snap.plans[id] = clonePlan(p)
	}
	for id, svc := range s.data.services {
		snap.services[id] = svc.Clone()
	}
	for id, inv := range s.data.invoices {
		snap.invoices[id] = cloneInvoice(inv)
	}
	return snap
}

func (s *Store) restore(snap dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = snap
}

// Plans returns a plan repository over the store
func (s *Store) Plans() *PlanRepository {
	return &PlanRepository{store: s}
}

// Services returns a service repository over the store
func (s *Store) Services() *ServiceRepository {
	return &ServiceRepository{store: s}
}

// Invoices returns an invoice repository over the store
func (s *Store) Invoices() *InvoiceRepository {
	return &InvoiceRepository{store: s}
}

// StatusLogs returns a status log repository over the store
func (s *Store) StatusLogs() *StatusLogRepository {
	return &StatusLogRepository{store: s}
}

func clonePlan(p *domain.Plan) *domain.Plan {
	c := *p
	if p.TrialDays != nil {
		v := *p.TrialDays
		c.TrialDays = &v
	}
	if p.GraceDays != nil {
		v := *p.GraceDays
		c.GraceDays = &v
	}
	c.Features = append([]string(nil), p.Features...)
	return &c
}

func cloneInvoice(i *domain.Invoice) *domain.Invoice {
	c := *i
	if i.PeriodEnd != nil {
		v := *i.PeriodEnd
		c.PeriodEnd = &v
	}
	if i.PaidAt != nil {
		v := *i.PaidAt
		c.PaidAt = &v
	}
	return &c
}

// detach copies a service for storage or return, dropping the plan reference
func detach(svc *domain.Service) *domain.Service {
	c := svc.Clone()
	c.Plan = nil
	return c
}
