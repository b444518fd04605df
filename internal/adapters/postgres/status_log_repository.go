package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
)

// StatusLogRepository implements ports.StatusLogRepository
type StatusLogRepository struct {
	pool *pgxpool.Pool
}

var _ ports.StatusLogRepository = (*StatusLogRepository)(nil)

// NewStatusLogRepository creates a new status log repository
func NewStatusLogRepository(pool *pgxpool.Pool) *StatusLogRepository {
	return &StatusLogRepository{pool: pool}
}

// Create appends a status log entry
func (r *StatusLogRepository) Create(ctx context.Context, tx ports.DBTX, entry *domain.StatusLog) error {
	_, err := executor(r.pool, tx).Exec(ctx, `
		INSERT INTO service_status_logs (id, service_id, from_status, to_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.ServiceID, string(entry.FromStatus), string(entry.ToStatus), entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create status log: %w", err)
	}
	return nil
}

// ListByService returns the service's status log, oldest first
func (r *StatusLogRepository) ListByService(ctx context.Context, db ports.DBTX, serviceID string) ([]*domain.StatusLog, error) {
	rows, err := executor(r.pool, db).Query(ctx, `
		SELECT id, service_id, from_status, to_status, reason, created_at
		FROM service_status_logs
		WHERE service_id = $1
		ORDER BY created_at, id`,
		serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list status logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*domain.StatusLog, 0)
	for rows.Next() {
		var (
			entry    domain.StatusLog
			from, to string
		)
		if err := rows.Scan(&entry.ID, &entry.ServiceID, &from, &to, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status log: %w", err)
		}
		entry.FromStatus = domain.ServiceStatus(from)
		entry.ToStatus = domain.ServiceStatus(to)
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
