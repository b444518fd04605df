package mocks

import (
	"context"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockServiceLifecycle mocks ports.ServiceLifecycle
type MockServiceLifecycle struct {
	mock.Mock
}

func (m *MockServiceLifecycle) Subscribe(ctx context.Context, userID, paymentToken string, plan *domain.Plan) (*domain.Service, error) {
	args := m.Called(ctx, userID, paymentToken, plan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockServiceLifecycle) Activate(ctx context.Context, service *domain.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockServiceLifecycle) Renew(ctx context.Context, service *domain.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *MockServiceLifecycle) StartGrace(ctx context.Context, service *domain.Service, reason string) error {
	args := m.Called(ctx, service, reason)
	return args.Error(0)
}

func (m *MockServiceLifecycle) MarkPastDue(ctx context.Context, service *domain.Service, reason string) error {
	args := m.Called(ctx, service, reason)
	return args.Error(0)
}

func (m *MockServiceLifecycle) Cancel(ctx context.Context, service *domain.Service, reason string) error {
	args := m.Called(ctx, service, reason)
	return args.Error(0)
}

// MockInvoiceCollaborator mocks ports.InvoiceCollaborator
type MockInvoiceCollaborator struct {
	mock.Mock
}

func (m *MockInvoiceCollaborator) RaiseRenewalInvoice(ctx context.Context, service *domain.Service) (*domain.Invoice, error) {
	args := m.Called(ctx, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceCollaborator) AttemptAutomaticPayment(ctx context.Context, invoice *domain.Invoice, service *domain.Service) (bool, error) {
	args := m.Called(ctx, invoice, service)
	return args.Bool(0), args.Error(1)
}

// MockPaymentObserver mocks ports.PaymentObserver
type MockPaymentObserver struct {
	mock.Mock
}

func (m *MockPaymentObserver) InvoiceAfterPayment(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockPaymentGateway mocks ports.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) Charge(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ChargeResult), args.Error(1)
}

// MockServiceLocker mocks ports.ServiceLocker
type MockServiceLocker struct {
	mock.Mock
}

func (m *MockServiceLocker) Acquire(ctx context.Context, serviceID string, ttl time.Duration) (func(context.Context) error, error) {
	args := m.Called(ctx, serviceID, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context) error), args.Error(1)
}
