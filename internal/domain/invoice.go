package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusUnpaid InvoiceStatus = "unpaid"
	InvoiceStatusPaid   InvoiceStatus = "paid"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

// Invoice is a charge for exactly one service billing period
type Invoice struct {
	PeriodStart      time.Time       `json:"period_start"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	PeriodEnd        *time.Time      `json:"period_end"`
	PaidAt           *time.Time      `json:"paid_at"`
	Total            decimal.Decimal `json:"total"`
	ID               string          `json:"id"`
	ServiceID        string          `json:"service_id"`
	Currency         string          `json:"currency"`
	PaymentReference string          `json:"payment_reference"`
	Status           InvoiceStatus   `json:"status"`
	// DeclineCount is the number of definitive declines so far; each one moves
	// the next automatic charge to a fresh idempotency key
	DeclineCount int `json:"decline_count"`
}

// IsPaid returns true once a payment has been recorded
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// IsOutstanding returns true while the invoice still awaits payment
func (i *Invoice) IsOutstanding() bool {
	return i.Status == InvoiceStatusUnpaid
}

// RecordDecline counts a declined charge at declinedAt
func (i *Invoice) RecordDecline(declinedAt time.Time) {
	i.DeclineCount++
	i.UpdatedAt = declinedAt
}

// MarkPaid records a payment at paidAt
func (i *Invoice) MarkPaid(reference string, paidAt time.Time) {
	i.Status = InvoiceStatusPaid
	i.PaymentReference = reference
	i.PaidAt = &paidAt
	i.UpdatedAt = paidAt
}
