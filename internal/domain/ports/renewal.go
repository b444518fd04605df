package ports

import "context"

// RenewalProcessor renews every service whose period has ended
type RenewalProcessor interface {
	ProcessDueRenewals(ctx context.Context, batchSize int) (*RenewalBatchResult, error)
}

// RenewalBatchResult represents the result of processing a batch of due services
type RenewalBatchResult struct {
	ProcessedCount int
	RenewedCount   int
	GraceCount     int
	PastDueCount   int
	CompletedCount int
	SkippedCount   int
	FailedCount    int
	Errors         []RenewalError
}

// RenewalError represents an error while renewing one service
type RenewalError struct {
	ServiceID string
	UserID    string
	Code      string
	Error     string
	Retriable bool
}
