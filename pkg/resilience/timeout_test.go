package resilience

import (
	"context"
	"testing"
	"time"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	config := DefaultTimeoutConfig()

	// Verify timeout hierarchy is correctly ordered
	if config.CronJob <= config.HTTPHandler {
		t.Errorf("CronJob (%v) must be > HTTPHandler (%v)", config.CronJob, config.HTTPHandler)
	}

	if config.HTTPHandler <= config.ExternalAPI {
		t.Errorf("HTTPHandler (%v) must be > ExternalAPI (%v)", config.HTTPHandler, config.ExternalAPI)
	}

	if config.ExternalAPI <= config.SingleRetry {
		t.Errorf("ExternalAPI (%v) must be > SingleRetry (%v)", config.ExternalAPI, config.SingleRetry)
	}

	if config.ExternalAPI != 30*time.Second {
		t.Errorf("Expected ExternalAPI = 30s, got %v", config.ExternalAPI)
	}
}

func TestTestTimeoutConfig(t *testing.T) {
	config := TestTimeoutConfig()

	if config.HTTPHandler >= 10*time.Second {
		t.Errorf("Test timeouts should be < 10s, got %v", config.HTTPHandler)
	}

	if config.HTTPHandler <= config.ExternalAPI {
		t.Errorf("HTTPHandler (%v) must be > ExternalAPI (%v)", config.HTTPHandler, config.ExternalAPI)
	}
}

func TestAllContextCreators(t *testing.T) {
	config := DefaultTimeoutConfig()

	tests := []struct {
		name     string
		create   func(context.Context) (context.Context, context.CancelFunc)
		expected time.Duration
	}{
		{"CronContext", config.CronContext, config.CronJob},
		{"HandlerContext", config.HandlerContext, config.HTTPHandler},
		{"ExternalAPIContext", config.ExternalAPIContext, config.ExternalAPI},
		{"RetryAttemptContext", config.RetryAttemptContext, config.SingleRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			ctx, cancel := tt.create(context.Background())
			defer cancel()

			deadline, ok := ctx.Deadline()
			if !ok {
				t.Fatal("expected a deadline")
			}

			remaining := deadline.Sub(start)
			if remaining < tt.expected-time.Second || remaining > tt.expected+time.Second {
				t.Errorf("expected timeout ~%v, got %v", tt.expected, remaining)
			}
		})
	}
}

func TestTimeoutHierarchyPreservation(t *testing.T) {
	config := DefaultTimeoutConfig()

	parent, parentCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer parentCancel()

	// Child asks for a longer timeout than the parent allows
	child, childCancel := config.CronContext(parent)
	defer childCancel()

	parentDeadline, _ := parent.Deadline()
	childDeadline, _ := child.Deadline()

	if childDeadline.After(parentDeadline) {
		t.Errorf("Child deadline (%v) should not be after parent deadline (%v)",
			childDeadline, parentDeadline)
	}
}

func TestContextTimeout(t *testing.T) {
	config := TestTimeoutConfig()
	config.SingleRetry = 50 * time.Millisecond

	ctx, cancel := config.RetryAttemptContext(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
		if ctx.Err() != context.DeadlineExceeded {
			t.Errorf("Expected context.DeadlineExceeded, got %v", ctx.Err())
		}
	case <-time.After(time.Second):
		t.Error("Context should time out after 50ms")
	}
}
