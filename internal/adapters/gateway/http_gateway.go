// Package gateway implements ports.PaymentGateway against a token-charging HTTP API
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	pkghttp "github.com/kevin07696/subscription-engine/pkg/http"
	"github.com/kevin07696/subscription-engine/pkg/observability"
	"github.com/kevin07696/subscription-engine/pkg/resilience"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned while the breaker rejects calls to the gateway
var ErrCircuitOpen = errors.New("payment gateway circuit breaker is open")

// Config contains configuration for the HTTP gateway adapter
type Config struct {
	// BaseURL of the gateway API, e.g. https://api.gateway.example
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Retries apply to transport failures and 5xx answers only
	MaxRetries int

	// Breaker opens after this many consecutive failed calls
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// DefaultConfig returns defaults for the gateway adapter
func DefaultConfig(baseURL, apiKey string) *Config {
	return &Config{
		BaseURL:          baseURL,
		APIKey:           apiKey,
		Timeout:          30 * time.Second,
		MaxRetries:       2,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

type chargeRequestBody struct {
	Amount   string            `json:"amount"`
	Currency string            `json:"currency"`
	Token    string            `json:"token"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type chargeResponseBody struct {
	TransactionID string `json:"transaction_id"`
	Approved      bool   `json:"approved"`
	ResponseCode  string `json:"response_code"`
	Message       string `json:"message"`
	Amount        string `json:"amount"`
}

// retryableError marks a failure worth retrying
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// HTTPGateway charges stored tokens over HTTP, behind a circuit breaker
type HTTPGateway struct {
	config     *Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*ports.ChargeResult]
	backoff    resilience.BackoffStrategy
	timeouts   *resilience.TimeoutConfig
	logger     *zap.Logger
}

var _ ports.PaymentGateway = (*HTTPGateway)(nil)

// NewHTTPGateway creates a new HTTP gateway adapter
func NewHTTPGateway(config *Config, logger *zap.Logger) *HTTPGateway {
	g := &HTTPGateway{
		config:     config,
		httpClient: pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(), config.Timeout),
		backoff:    resilience.DefaultExponentialBackoff(),
		timeouts:   resilience.DefaultTimeoutConfig(),
		logger:     logger,
	}

	g.breaker = gobreaker.NewCircuitBreaker[*ports.ChargeResult](gobreaker.Settings{
		Name:        "payment_gateway",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment gateway circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			observability.SetCircuitBreakerState(name, float64(to))
		},
	})

	return g
}

// SetBackoff overrides the retry backoff strategy
func (g *HTTPGateway) SetBackoff(b resilience.BackoffStrategy) {
	g.backoff = b
}

// SetTimeouts overrides the per-call and per-attempt deadlines
func (g *HTTPGateway) SetTimeouts(tc *resilience.TimeoutConfig) {
	g.timeouts = tc
}

// Charge charges req.Token. A declined charge is returned as a result with Approved=false.
func (g *HTTPGateway) Charge(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResult, error) {
	if req.Token == "" {
		return nil, fmt.Errorf("invalid request: token is required")
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("invalid request: amount must be positive, got %s", req.Amount.StringFixed(2))
	}

	ctx, cancel := g.timeouts.ExternalAPIContext(ctx)
	defer cancel()

	started := time.Now()
	result, err := g.breaker.Execute(func() (*ports.ChargeResult, error) {
		return g.chargeWithRetry(ctx, req)
	})
	elapsed := time.Since(started).Seconds()

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("circuit breaker is open, rejecting charge",
				zap.String("idempotency_key", req.IdempotencyKey))
			observability.RecordGatewayCharge("rejected", "", elapsed)
			return nil, ErrCircuitOpen
		}
		observability.RecordGatewayCharge("error", "", elapsed)
		return nil, err
	}

	status := "approved"
	if !result.Approved {
		status = "declined"
	}
	observability.RecordGatewayCharge(status, result.ResponseCode, elapsed)

	return result, nil
}

func (g *HTTPGateway) chargeWithRetry(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResult, error) {
	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Info("retrying charge with backoff",
				zap.Int("attempt", attempt),
				zap.String("idempotency_key", req.IdempotencyKey),
			)
			if err := resilience.Wait(ctx, g.backoff, attempt-1); err != nil {
				return nil, fmt.Errorf("retry cancelled: %w", err)
			}
		}

		attemptCtx, cancel := g.timeouts.RetryAttemptContext(ctx)
		result, err := g.send(attemptCtx, req)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var retryable *retryableError
		if !errors.As(err, &retryable) {
			return nil, err
		}
		g.logger.Warn("retryable gateway error",
			zap.Error(err),
			zap.Int("attempt", attempt))
	}

	return nil, fmt.Errorf("charge failed after %d retries: %w", g.config.MaxRetries, lastErr)
}

func (g *HTTPGateway) send(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResult, error) {
	payload, err := json.Marshal(chargeRequestBody{
		Amount:   req.Amount.StringFixed(2),
		Currency: req.Currency,
		Token:    req.Token,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal charge request: %w", err)
	}

	url := strings.TrimRight(g.config.BaseURL, "/") + "/v1/charges"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	httpResp, err := g.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("send charge: %w", err)
		}
		return nil, &retryableError{err: fmt.Errorf("send charge: %w", err)}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case httpResp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("gateway returned status %d", httpResp.StatusCode)}
	case httpResp.StatusCode != http.StatusOK && httpResp.StatusCode != http.StatusPaymentRequired:
		return nil, fmt.Errorf("gateway rejected request with status %d: %s", httpResp.StatusCode, truncate(body, 200))
	}

	var parsed chargeResponseBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	amount := req.Amount
	if parsed.Amount != "" {
		if amount, err = decimal.NewFromString(parsed.Amount); err != nil {
			return nil, fmt.Errorf("parse response amount: %w", err)
		}
	}

	result := &ports.ChargeResult{
		Timestamp:     time.Now(),
		Amount:        amount,
		TransactionID: parsed.TransactionID,
		ResponseCode:  parsed.ResponseCode,
		Message:       parsed.Message,
		Approved:      parsed.Approved && httpResp.StatusCode == http.StatusOK,
	}

	g.logger.Info("charge processed",
		zap.String("transaction_id", result.TransactionID),
		zap.String("response_code", result.ResponseCode),
		zap.Bool("approved", result.Approved),
		zap.String("idempotency_key", req.IdempotencyKey),
	)

	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
