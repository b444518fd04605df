package mocks

import (
	"context"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockPlanRepository mocks ports.PlanRepository
type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.Plan) error {
	args := m.Called(ctx, tx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Plan, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) ListActive(ctx context.Context, db ports.DBTX) ([]*domain.Plan, error) {
	args := m.Called(ctx, db)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Plan), args.Error(1)
}

// MockServiceRepository mocks ports.ServiceRepository
type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) Create(ctx context.Context, tx ports.DBTX, service *domain.Service) error {
	args := m.Called(ctx, tx, service)
	return args.Error(0)
}

func (m *MockServiceRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Service, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockServiceRepository) Update(ctx context.Context, tx ports.DBTX, service *domain.Service) error {
	args := m.Called(ctx, tx, service)
	return args.Error(0)
}

func (m *MockServiceRepository) ListDueForRenewal(ctx context.Context, db ports.DBTX, asOf time.Time, limit int32) ([]*domain.Service, error) {
	args := m.Called(ctx, db, asOf, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Service), args.Error(1)
}

// MockInvoiceRepository mocks ports.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	args := m.Called(ctx, tx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Invoice, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetByServicePeriod(ctx context.Context, db ports.DBTX, serviceID string, periodStart time.Time) (*domain.Invoice, error) {
	args := m.Called(ctx, db, serviceID, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Update(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	args := m.Called(ctx, tx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) ListByService(ctx context.Context, db ports.DBTX, serviceID string) ([]*domain.Invoice, error) {
	args := m.Called(ctx, db, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Invoice), args.Error(1)
}

// MockStatusLogRepository mocks ports.StatusLogRepository
type MockStatusLogRepository struct {
	mock.Mock
}

func (m *MockStatusLogRepository) Create(ctx context.Context, tx ports.DBTX, entry *domain.StatusLog) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockStatusLogRepository) ListByService(ctx context.Context, db ports.DBTX, serviceID string) ([]*domain.StatusLog, error) {
	args := m.Called(ctx, db, serviceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.StatusLog), args.Error(1)
}
