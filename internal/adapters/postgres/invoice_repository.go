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

const invoiceColumns = `id, service_id, status, total, currency, period_start, period_end,
	payment_reference, paid_at, decline_count, created_at, updated_at`

// InvoiceRepository implements ports.InvoiceRepository
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

var _ ports.InvoiceRepository = (*InvoiceRepository)(nil)

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// Create inserts an invoice. The unique index on (service_id, period_start) rejects a
// second live invoice for the same period.
func (r *InvoiceRepository) Create(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	total, err := toNumeric(invoice.Total)
	if err != nil {
		return err
	}

	_, err = executor(r.pool, tx).Exec(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		invoice.ID, invoice.ServiceID, string(invoice.Status), total, invoice.Currency,
		invoice.PeriodStart, nullTime(invoice.PeriodEnd), invoice.PaymentReference,
		nullTime(invoice.PaidAt), invoice.DeclineCount, invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice by its ID
func (r *InvoiceRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Invoice, error) {
	row := executor(r.pool, db).QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	return r.one(row, "get invoice by id")
}

// GetByServicePeriod retrieves the live invoice for the service period starting at periodStart
func (r *InvoiceRepository) GetByServicePeriod(ctx context.Context, db ports.DBTX, serviceID string, periodStart time.Time) (*domain.Invoice, error) {
	row := executor(r.pool, db).QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE service_id = $1 AND period_start = $2 AND status <> 'void'`,
		serviceID, periodStart,
	)
	return r.one(row, "get invoice by service period")
}

// Update persists the payment and decline state of an invoice
func (r *InvoiceRepository) Update(ctx context.Context, tx ports.DBTX, invoice *domain.Invoice) error {
	total, err := toNumeric(invoice.Total)
	if err != nil {
		return err
	}

	tag, err := executor(r.pool, tx).Exec(ctx, `
		UPDATE invoices SET
			status = $2,
			total = $3,
			payment_reference = $4,
			paid_at = $5,
			decline_count = $6,
			updated_at = $7
		WHERE id = $1`,
		invoice.ID, string(invoice.Status), total, invoice.PaymentReference,
		nullTime(invoice.PaidAt), invoice.DeclineCount, invoice.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

// ListByService lists a service's invoices, oldest period first
func (r *InvoiceRepository) ListByService(ctx context.Context, db ports.DBTX, serviceID string) ([]*domain.Invoice, error) {
	rows, err := executor(r.pool, db).Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE service_id = $1
		ORDER BY period_start, created_at`,
		serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invoices by service: %w", err)
	}
	defer rows.Close()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) one(row pgx.Row, op string) (*domain.Invoice, error) {
	invoice, err := scanInvoice(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return invoice, nil
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var (
		inv               domain.Invoice
		status            string
		total             pgtype.Numeric
		periodEnd, paidAt pgtype.Timestamptz
	)

	err := row.Scan(
		&inv.ID, &inv.ServiceID, &status, &total, &inv.Currency, &inv.PeriodStart, &periodEnd,
		&inv.PaymentReference, &paidAt, &inv.DeclineCount, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = domain.InvoiceStatus(status)
	inv.PeriodStart = inv.PeriodStart.UTC()
	inv.PeriodEnd = timePtr(periodEnd)
	inv.PaidAt = timePtr(paidAt)

	if inv.Total, err = pgNumericToDecimal(total); err != nil {
		return nil, fmt.Errorf("convert total: %w", err)
	}
	return &inv, nil
}
