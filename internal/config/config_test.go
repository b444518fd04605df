package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/billing")
	t.Setenv("GATEWAY_BASE_URL", "https://gateway.test")
	t.Setenv("GATEWAY_API_KEY", "sk_test")
	t.Setenv("CRON_SECRET", "cron")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "USD", cfg.Billing.Currency)
	assert.Equal(t, 24, cfg.Billing.MaxCatchUpRenewals)
	assert.Equal(t, "@every 1h", cfg.Scheduler.Spec)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "local", cfg.Secrets.Backend)
	assert.True(t, cfg.Billing.MembershipPrice.IsZero())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("BILLING_CURRENCY", "eur")
	t.Setenv("BILLING_GRACE_DAYS", "5")
	t.Setenv("BILLING_TRIAL_INCLUSIVE", "true")
	t.Setenv("BILLING_MEMBERSHIP_PRICE", "25.50")
	t.Setenv("GATEWAY_TIMEOUT", "5s")
	t.Setenv("SCHEDULER_BATCH_SIZE", "10")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.Billing.Currency)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 10, cfg.Scheduler.BatchSize)
	assert.Equal(t, int32(25), cfg.Database.MaxConns, "unparsable values fall back to the default")

	settings := cfg.Billing.Settings()
	assert.Equal(t, 5, settings.GraceDays)
	assert.True(t, settings.IsTrialInclusive)
	assert.True(t, settings.MembershipPrice.Equal(decimal.RequireFromString("25.50")))
}

func TestLoadFromEnv_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "missing database", key: "DATABASE_URL", value: ""},
		{name: "missing gateway", key: "GATEWAY_BASE_URL", value: ""},
		{name: "bad currency", key: "BILLING_CURRENCY", value: "DOLLARS"},
		{name: "negative grace", key: "BILLING_GRACE_DAYS", value: "-1"},
		{name: "negative price", key: "BILLING_MEMBERSHIP_PRICE", value: "-3"},
		{name: "unparsable price", key: "BILLING_MEMBERSHIP_PRICE", value: "abc"},
		{name: "zero catch up", key: "BILLING_MAX_CATCH_UP", value: "0"},
		{name: "unknown secret backend", key: "SECRET_MANAGER", value: "gcp"},
		{name: "vault without address", key: "SECRET_MANAGER", value: "vault"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidate_SecretPathsSatisfyRequiredKeys(t *testing.T) {
	setRequired(t)
	t.Setenv("GATEWAY_API_KEY", "")
	t.Setenv("GATEWAY_API_KEY_SECRET_PATH", "gateway/api-key")
	t.Setenv("CRON_SECRET", "")
	t.Setenv("CRON_SECRET_PATH", "cron-secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "gateway/api-key", cfg.Gateway.APIKeySecretPath)
}
