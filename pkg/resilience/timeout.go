package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy of a renewal run, outermost first:
//
//	Cron job (5m)        one ProcessDueRenewals batch
//	HTTP handler (60s)   a manual trigger waiting for a small batch
//	External API (30s)   one gateway charge including retries
//	Single retry (10s)   one gateway HTTP attempt
//
// Each layer must complete before its parent times out.
type TimeoutConfig struct {
	CronJob     time.Duration
	HTTPHandler time.Duration
	ExternalAPI time.Duration
	SingleRetry time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		CronJob:     5 * time.Minute,
		HTTPHandler: 60 * time.Second,
		ExternalAPI: 30 * time.Second,
		SingleRetry: 10 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		CronJob:     30 * time.Second,
		HTTPHandler: 5 * time.Second,
		ExternalAPI: 2 * time.Second,
		SingleRetry: 1 * time.Second,
	}
}

// CronContext bounds a scheduled renewal batch
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// HandlerContext bounds an HTTP request
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// ExternalAPIContext bounds one gateway call
func (tc *TimeoutConfig) ExternalAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ExternalAPI)
}

// RetryAttemptContext bounds one attempt within a retried call
func (tc *TimeoutConfig) RetryAttemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.SingleRetry)
}
