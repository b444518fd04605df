package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/pkg/resilience"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*HTTPGateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig(server.URL, "sk_test")
	cfg.Timeout = 2 * time.Second
	cfg.FailureThreshold = 2
	cfg.OpenTimeout = time.Minute

	g := NewHTTPGateway(cfg, zap.NewNop())
	g.SetBackoff(&resilience.FixedBackoff{Delay: time.Millisecond})
	return g, server
}

func chargeRequest() *ports.ChargeRequest {
	return &ports.ChargeRequest{
		Amount:         decimal.RequireFromString("29.99"),
		Currency:       "USD",
		Token:          "tok_visa",
		IdempotencyKey: "svc-1-2024-02-15",
		Metadata:       map[string]string{"service_id": "svc-1"},
	}
}

func TestHTTPGateway_Charge(t *testing.T) {
	t.Run("approved charge", func(t *testing.T) {
		g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/charges", r.URL.Path)
			assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
			assert.Equal(t, "svc-1-2024-02-15", r.Header.Get("Idempotency-Key"))

			var body chargeRequestBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "29.99", body.Amount)
			assert.Equal(t, "tok_visa", body.Token)

			_ = json.NewEncoder(w).Encode(chargeResponseBody{
				TransactionID: "txn_1", Approved: true, ResponseCode: "00", Message: "Approved", Amount: "29.99",
			})
		})

		result, err := g.Charge(context.Background(), chargeRequest())

		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.Equal(t, "txn_1", result.TransactionID)
		assert.True(t, result.Amount.Equal(decimal.RequireFromString("29.99")))
	})

	t.Run("decline is a result not an error", func(t *testing.T) {
		g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(chargeResponseBody{ResponseCode: "51", Message: "Insufficient funds"})
		})

		result, err := g.Charge(context.Background(), chargeRequest())

		require.NoError(t, err)
		assert.False(t, result.Approved)
		assert.Equal(t, "51", result.ResponseCode)
	})

	t.Run("server errors are retried", func(t *testing.T) {
		var calls int32
		g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_ = json.NewEncoder(w).Encode(chargeResponseBody{TransactionID: "txn_2", Approved: true, ResponseCode: "00"})
		})

		result, err := g.Charge(context.Background(), chargeRequest())

		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls int32
		g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"unknown token"}`))
		})

		_, err := g.Charge(context.Background(), chargeRequest())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "422")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("breaker opens after consecutive failures", func(t *testing.T) {
		var calls int32
		g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		g.config.MaxRetries = 0

		for i := 0; i < 2; i++ {
			_, err := g.Charge(context.Background(), chargeRequest())
			require.Error(t, err)
		}

		_, err := g.Charge(context.Background(), chargeRequest())

		assert.True(t, errors.Is(err, ErrCircuitOpen))
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("invalid requests never reach the gateway", func(t *testing.T) {
		g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected call")
		})

		req := chargeRequest()
		req.Token = ""
		_, err := g.Charge(context.Background(), req)
		assert.Error(t, err)

		req = chargeRequest()
		req.Amount = decimal.Zero
		_, err = g.Charge(context.Background(), req)
		assert.Error(t, err)
	})
}
