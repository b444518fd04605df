package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/cycle"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/observability"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

// ServiceManager implements ports.ServiceLifecycle.
// Each transition writes the service and a status log row in one transaction.
type ServiceManager struct {
	db       ports.TransactionManager
	services ports.ServiceRepository
	logs     ports.StatusLogRepository
	clock    timeutil.Clock
	settings domain.Settings
	logger   ports.Logger
}

// NewServiceManager creates a new service manager
func NewServiceManager(
	db ports.TransactionManager,
	services ports.ServiceRepository,
	logs ports.StatusLogRepository,
	clock timeutil.Clock,
	settings domain.Settings,
	logger ports.Logger,
) *ServiceManager {
	return &ServiceManager{
		db:       db,
		services: services,
		logs:     logs,
		clock:    clock,
		settings: settings,
		logger:   logger,
	}
}

// Subscribe creates a service for userID on plan. Plans with a trial start the service
// in TRIAL with a period covering the trial; all others start in NEW without a period.
func (m *ServiceManager) Subscribe(ctx context.Context, userID, paymentToken string, plan *domain.Plan) (*domain.Service, error) {
	if _, err := cycle.NewCalculator(plan); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	service := &domain.Service{
		ID:           uuid.New().String(),
		UserID:       userID,
		PlanID:       plan.ID,
		Plan:         plan,
		PaymentToken: paymentToken,
		Status:       domain.ServiceStatusNew,
		Price:        plan.Price,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if plan.HasTrialPeriod(m.settings) {
		trialEnd := now.AddDate(0, 0, plan.TrialPeriod(m.settings))
		service.Status = domain.ServiceStatusTrial
		service.CurrentPeriodStart = &now
		service.CurrentPeriodEnd = &trialEnd
	}

	err := m.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := m.services.Create(ctx, tx, service); err != nil {
			return fmt.Errorf("create service: %w", err)
		}
		return m.logs.Create(ctx, tx, &domain.StatusLog{
			ID:        uuid.New().String(),
			ServiceID: service.ID,
			ToStatus:  service.Status,
			Reason:    "Subscribed",
			CreatedAt: now,
		})
	})
	if err != nil {
		m.logger.Error("subscribe failed",
			ports.String("user_id", userID),
			ports.String("plan_id", plan.ID),
			ports.Err(err))
		return nil, err
	}

	m.logger.Info("service subscribed",
		ports.String("service_id", service.ID),
		ports.String("plan_id", plan.ID),
		ports.String("status", string(service.Status)))

	return service, nil
}

// Activate starts the first paid period. A delayed activation date, set when a
// trial is folded into the first period, takes precedence over the plan's start rule.
func (m *ServiceManager) Activate(ctx context.Context, service *domain.Service) error {
	return m.transition(ctx, service, "Activated", func(now time.Time) error {
		calc, err := calculatorFor(service)
		if err != nil {
			return err
		}

		start := calc.PeriodStartDate(now)
		if service.DelayActivatedAt != nil {
			start = *service.DelayActivatedAt
		}

		service.Status = domain.ServiceStatusActive
		service.StatusReason = ""
		service.ActivatedAt = &now
		setPeriod(service, calc, start)
		return nil
	})
}

// Renew advances the service to the period that follows the current one
func (m *ServiceManager) Renew(ctx context.Context, service *domain.Service) error {
	return m.transition(ctx, service, "Renewed", func(now time.Time) error {
		calc, err := calculatorFor(service)
		if err != nil {
			return err
		}

		start := now
		if service.CurrentPeriodEnd != nil {
			start = *service.CurrentPeriodEnd
		}

		service.Status = domain.ServiceStatusActive
		service.StatusReason = ""
		service.CountRenewal++
		setPeriod(service, calc, start)
		return nil
	})
}

// StartGrace moves the service into its grace period
func (m *ServiceManager) StartGrace(ctx context.Context, service *domain.Service, reason string) error {
	return m.setStatus(ctx, service, domain.ServiceStatusGrace, reason)
}

// MarkPastDue lapses the service
func (m *ServiceManager) MarkPastDue(ctx context.Context, service *domain.Service, reason string) error {
	return m.setStatus(ctx, service, domain.ServiceStatusPastDue, reason)
}

// Cancel ends the service. Cancelling a cancelled service is a no-op.
func (m *ServiceManager) Cancel(ctx context.Context, service *domain.Service, reason string) error {
	if service.IsCancelled() {
		return nil
	}
	return m.transition(ctx, service, reason, func(now time.Time) error {
		service.Status = domain.ServiceStatusCancelled
		service.StatusReason = reason
		service.CancelledAt = &now
		return nil
	})
}

func (m *ServiceManager) setStatus(ctx context.Context, service *domain.Service, status domain.ServiceStatus, reason string) error {
	return m.transition(ctx, service, reason, func(time.Time) error {
		service.Status = status
		service.StatusReason = reason
		return nil
	})
}

// transition applies mutate and persists the result. On any failure the in-memory
// service is restored so callers never observe a partial change.
func (m *ServiceManager) transition(ctx context.Context, service *domain.Service, reason string, mutate func(now time.Time) error) error {
	snapshot := service.Clone()
	from := service.Status
	now := m.clock.Now()

	if err := mutate(now); err != nil {
		service.Restore(snapshot)
		return err
	}
	service.UpdatedAt = now

	err := m.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := m.services.Update(ctx, tx, service); err != nil {
			return fmt.Errorf("update service: %w", err)
		}

		entry := &domain.StatusLog{
			ID:         uuid.New().String(),
			ServiceID:  service.ID,
			FromStatus: from,
			ToStatus:   service.Status,
			Reason:     reason,
			CreatedAt:  now,
		}
		if err := m.logs.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("record status log: %w", err)
		}
		return nil
	})
	if err != nil {
		service.Restore(snapshot)
		m.logger.Error("service transition failed",
			ports.String("service_id", service.ID),
			ports.String("from", string(from)),
			ports.String("to", string(service.Status)),
			ports.Err(err))
		return err
	}

	observability.RecordTransition(string(from), string(service.Status))

	fields := []ports.Field{
		ports.String("service_id", service.ID),
		ports.String("from", string(from)),
		ports.String("to", string(service.Status)),
		ports.String("reason", reason),
	}
	if service.CurrentPeriodEnd != nil {
		fields = append(fields, ports.Time("period_end", *service.CurrentPeriodEnd))
	}
	m.logger.Info("service transitioned", fields...)

	return nil
}

func calculatorFor(service *domain.Service) (*cycle.Calculator, error) {
	if service.Plan == nil {
		return nil, domain.InvalidPlanConfiguration("service %s has no plan attached", service.ID)
	}
	return cycle.NewCalculator(service.Plan)
}

// setPeriod starts a period at start; lifetime plans get an open-ended period
func setPeriod(service *domain.Service, calc *cycle.Calculator, start time.Time) {
	service.CurrentPeriodStart = &start
	if end, ok := calc.PeriodEndDate(start); ok {
		service.CurrentPeriodEnd = &end
	} else {
		service.CurrentPeriodEnd = nil
	}
}
