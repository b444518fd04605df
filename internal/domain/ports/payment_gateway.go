package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ChargeRequest charges a stored payment token
type ChargeRequest struct {
	Amount         decimal.Decimal
	Currency       string
	Token          string
	IdempotencyKey string
	Metadata       map[string]string
}

// ChargeResult represents the gateway's answer to a charge
type ChargeResult struct {
	Timestamp     time.Time
	Amount        decimal.Decimal
	TransactionID string
	ResponseCode  string
	Message       string
	Approved      bool
}

// PaymentGateway charges stored payment tokens.
// A decline is a result with Approved=false; errors are reserved for transport failures.
//
// A gateway may replay its first definitive answer, approval or decline, for a
// repeated IdempotencyKey. Callers therefore send a new key for every attempt
// that follows a decline, and reuse the key only after a transport failure.
type PaymentGateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}
