package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Check(t *testing.T) {
	hc := NewHealthChecker()
	hc.Register("database", PingFunc(func(context.Context) error { return nil }))
	hc.Register("redis", PingFunc(func(context.Context) error { return errors.New("connection refused") }))

	status := hc.Check(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["database"])
	assert.Equal(t, "unhealthy: connection refused", status.Checks["redis"])
}

func TestMetricsMux(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		path       string
		wantStatus int
	}{
		{name: "health ok", path: "/health", wantStatus: http.StatusOK},
		{name: "health failing", path: "/health", pingErr: errors.New("down"), wantStatus: http.StatusServiceUnavailable},
		{name: "ready ok", path: "/ready", wantStatus: http.StatusOK},
		{name: "ready failing", path: "/ready", pingErr: errors.New("down"), wantStatus: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker()
			hc.Register("database", PingFunc(func(context.Context) error { return tt.pingErr }))

			rec := httptest.NewRecorder()
			NewMetricsMux(hc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.path == "/health" {
				var body HealthStatus
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Contains(t, body.Checks, "database")
			}
		})
	}
}
