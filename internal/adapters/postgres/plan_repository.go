package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin07696/subscription-engine/internal/domain"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
)

const planColumns = `id, name, plan_type, monthly_behavior, day_interval, month_interval, month_day,
	year_interval, price, setup_price, membership_price, renewal_period, is_custom_membership,
	trial_days, grace_days, features, is_active, created_at, updated_at`

// PlanRepository implements ports.PlanRepository
type PlanRepository struct {
	pool *pgxpool.Pool
}

var _ ports.PlanRepository = (*PlanRepository)(nil)

// NewPlanRepository creates a new plan repository
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// Create inserts a plan
func (r *PlanRepository) Create(ctx context.Context, tx ports.DBTX, plan *domain.Plan) error {
	price, err := toNumeric(plan.Price)
	if err != nil {
		return err
	}
	setup, err := toNumeric(plan.SetupPrice)
	if err != nil {
		return err
	}
	membership, err := toNumeric(plan.MembershipPrice)
	if err != nil {
		return err
	}

	features := plan.Features
	if features == nil {
		features = []string{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	_, err = executor(r.pool, tx).Exec(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		plan.ID, plan.Name, string(plan.Type), string(plan.MonthlyBehavior),
		plan.DayInterval, plan.MonthInterval, plan.MonthDay, plan.YearInterval,
		price, setup, membership, plan.RenewalPeriod, plan.IsCustomMembership,
		nullInt(plan.TrialDays), nullInt(plan.GraceDays), featuresJSON, plan.IsActive,
		plan.CreatedAt, plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

// GetByID retrieves a plan by its ID
func (r *PlanRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Plan, error) {
	row := executor(r.pool, db).QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id)

	plan, err := scanPlan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan by id: %w", err)
	}
	return plan, nil
}

// ListActive lists the plans open for subscription
func (r *PlanRepository) ListActive(ctx context.Context, db ports.DBTX) ([]*domain.Plan, error) {
	rows, err := executor(r.pool, db).Query(ctx, `SELECT `+planColumns+` FROM plans WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list active plans: %w", err)
	}
	defer rows.Close()

	plans := make([]*domain.Plan, 0)
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var (
		p                        domain.Plan
		planType, behavior       string
		price, setup, membership pgtype.Numeric
		trialDays, graceDays     pgtype.Int4
		featuresJSON             []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &planType, &behavior, &p.DayInterval, &p.MonthInterval, &p.MonthDay,
		&p.YearInterval, &price, &setup, &membership, &p.RenewalPeriod, &p.IsCustomMembership,
		&trialDays, &graceDays, &featuresJSON, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Type = domain.PlanType(planType)
	p.MonthlyBehavior = domain.MonthlyBehavior(behavior)
	p.TrialDays = intPtr(trialDays)
	p.GraceDays = intPtr(graceDays)

	if p.Price, err = pgNumericToDecimal(price); err != nil {
		return nil, fmt.Errorf("convert price: %w", err)
	}
	if p.SetupPrice, err = pgNumericToDecimal(setup); err != nil {
		return nil, fmt.Errorf("convert setup price: %w", err)
	}
	if p.MembershipPrice, err = pgNumericToDecimal(membership); err != nil {
		return nil, fmt.Errorf("convert membership price: %w", err)
	}
	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &p.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
	}

	return &p, nil
}
