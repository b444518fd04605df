package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
)

const serviceColumns = `id, user_id, plan_id, payment_token, status, status_reason, price, count_renewal,
	current_period_start, current_period_end, delay_activated_at, activated_at, cancelled_at,
	created_at, updated_at`

// ServiceRepository implements ports.ServiceRepository
type ServiceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ServiceRepository = (*ServiceRepository)(nil)

// NewServiceRepository creates a new service repository
func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

// Create inserts a service
func (r *ServiceRepository) Create(ctx context.Context, tx ports.DBTX, service *domain.Service) error {
	price, err := toNumeric(service.Price)
	if err != nil {
		return err
	}

	_, err = executor(r.pool, tx).Exec(ctx, `
		INSERT INTO services (`+serviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		service.ID, service.UserID, service.PlanID, service.PaymentToken,
		string(service.Status), service.StatusReason, price, service.CountRenewal,
		nullTime(service.CurrentPeriodStart), nullTime(service.CurrentPeriodEnd),
		nullTime(service.DelayActivatedAt), nullTime(service.ActivatedAt), nullTime(service.CancelledAt),
		service.CreatedAt, service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// GetByID retrieves a service by its ID
func (r *ServiceRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Service, error) {
	row := executor(r.pool, db).QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)

	service, err := scanService(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, fmt.Errorf("get service by id: %w", err)
	}
	return service, nil
}

// Update persists the mutable fields of a service
func (r *ServiceRepository) Update(ctx context.Context, tx ports.DBTX, service *domain.Service) error {
	price, err := toNumeric(service.Price)
	if err != nil {
		return err
	}

	tag, err := executor(r.pool, tx).Exec(ctx, `
		UPDATE services SET
			payment_token = $2,
			status = $3,
			status_reason = $4,
			price = $5,
			count_renewal = $6,
			current_period_start = $7,
			current_period_end = $8,
			delay_activated_at = $9,
			activated_at = $10,
			cancelled_at = $11,
			updated_at = $12
		WHERE id = $1`,
		service.ID, service.PaymentToken, string(service.Status), service.StatusReason, price,
		service.CountRenewal, nullTime(service.CurrentPeriodStart), nullTime(service.CurrentPeriodEnd),
		nullTime(service.DelayActivatedAt), nullTime(service.ActivatedAt), nullTime(service.CancelledAt),
		service.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrServiceNotFound
	}
	return nil
}

// ListDueForRenewal lists active and grace services whose period ended at or before asOf
func (r *ServiceRepository) ListDueForRenewal(ctx context.Context, db ports.DBTX, asOf time.Time, limit int32) ([]*domain.Service, error) {
	rows, err := executor(r.pool, db).Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE status IN ('active', 'grace')
		  AND current_period_end IS NOT NULL
		  AND current_period_end <= $1
		ORDER BY current_period_end, id
		LIMIT $2`,
		asOf, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list services due for renewal: %w", err)
	}
	defer rows.Close()

	services := make([]*domain.Service, 0)
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, service)
	}
	return services, rows.Err()
}

func scanService(row pgx.Row) (*domain.Service, error) {
	var (
		s                                                     domain.Service
		status                                                string
		price                                                 pgtype.Numeric
		periodStart, periodEnd, delayed, activated, cancelled pgtype.Timestamptz
	)

	err := row.Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.PaymentToken, &status, &s.StatusReason, &price, &s.CountRenewal,
		&periodStart, &periodEnd, &delayed, &activated, &cancelled,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = domain.ServiceStatus(status)
	s.CurrentPeriodStart = timePtr(periodStart)
	s.CurrentPeriodEnd = timePtr(periodEnd)
	s.DelayActivatedAt = timePtr(delayed)
	s.ActivatedAt = timePtr(activated)
	s.CancelledAt = timePtr(cancelled)

	if s.Price, err = pgNumericToDecimal(price); err != nil {
		return nil, fmt.Errorf("convert price: %w", err)
	}
	return &s, nil
}
