package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/subscription-engine/internal/domain"
)

// ServiceBuilder provides fluent API for building test services.
type ServiceBuilder struct {
	service *domain.Service
}

// NewService creates an ACTIVE service on plan with no period set.
func NewService(plan *domain.Plan) *ServiceBuilder {
	now := time.Now()
	return &ServiceBuilder{
		service: &domain.Service{
			ID:           uuid.New().String(),
			UserID:       uuid.New().String(),
			PlanID:       plan.ID,
			Plan:         plan,
			PaymentToken: "tok_test",
			Status:       domain.ServiceStatusActive,
			Price:        plan.Price,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}

func (b *ServiceBuilder) WithID(id string) *ServiceBuilder {
	b.service.ID = id
	return b
}

func (b *ServiceBuilder) WithStatus(status domain.ServiceStatus) *ServiceBuilder {
	b.service.Status = status
	return b
}

// WithPeriod sets the current period bounds.
func (b *ServiceBuilder) WithPeriod(start, end time.Time) *ServiceBuilder {
	b.service.CurrentPeriodStart = TimePtr(start)
	b.service.CurrentPeriodEnd = TimePtr(end)
	return b
}

func (b *ServiceBuilder) WithCountRenewal(n int) *ServiceBuilder {
	b.service.CountRenewal = n
	return b
}

func (b *ServiceBuilder) WithPaymentToken(token string) *ServiceBuilder {
	b.service.PaymentToken = token
	return b
}

func (b *ServiceBuilder) Build() *domain.Service {
	return b.service
}
