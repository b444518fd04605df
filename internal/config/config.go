package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/kevin07696/subscription-engine/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Gateway     GatewayConfig
	Secrets     SecretsConfig
	Billing     BillingConfig
	Scheduler   SchedulerConfig
	Logger      LoggerConfig
}

// ServerConfig holds HTTP and gRPC listener configuration
type ServerConfig struct {
	HTTPPort        int
	GRPCPort        int
	MetricsPort     int
	ShutdownTimeout time.Duration

	// CronSecret authenticates POST /cron/process-renewals
	CronSecret         string
	CronSecretPath     string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds the lock store configuration. An empty URL selects the in-process locker.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// GatewayConfig holds payment gateway configuration
type GatewayConfig struct {
	BaseURL          string
	APIKey           string
	APIKeySecretPath string
	Timeout          time.Duration
	MaxRetries       int
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// SecretsConfig selects the secret backend: "local", "aws" or "vault"
type SecretsConfig struct {
	Backend   string
	CacheTTL  time.Duration
	LocalPath string

	AWSRegion   string
	AWSProfile  string
	AWSEndpoint string

	VaultAddress    string
	VaultAuthMethod string
	VaultToken      string
	VaultRoleID     string
	VaultSecretID   string
	VaultNamespace  string
	VaultMountPath  string
	VaultKVVersion  string
}

// BillingConfig holds global billing defaults
type BillingConfig struct {
	Currency           string
	TrialDays          int
	GraceDays          int
	MembershipPrice    decimal.Decimal
	IsTrialInclusive   bool
	MaxCatchUpRenewals int
	LockTTL            time.Duration
}

// Settings converts the billing section to domain settings
func (b BillingConfig) Settings() domain.Settings {
	return domain.Settings{
		TrialDays:          b.TrialDays,
		GraceDays:          b.GraceDays,
		MembershipPrice:    b.MembershipPrice,
		IsTrialInclusive:   b.IsTrialInclusive,
		MaxCatchUpRenewals: b.MaxCatchUpRenewals,
	}
}

// SchedulerConfig controls the in-process renewal scheduler
type SchedulerConfig struct {
	Enabled   bool
	Spec      string
	BatchSize int
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level string
}

// LoadFromEnv loads configuration from environment variables, after an optional .env file
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	price, err := decimal.NewFromString(getEnv("BILLING_MEMBERSHIP_PRICE", "0"))
	if err != nil {
		return nil, fmt.Errorf("BILLING_MEMBERSHIP_PRICE: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			HTTPPort:           getEnvAsInt("HTTP_PORT", 8080),
			GRPCPort:           getEnvAsInt("GRPC_PORT", 50051),
			MetricsPort:        getEnvAsInt("METRICS_PORT", 9090),
			ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
			CronSecret:         getEnv("CRON_SECRET", ""),
			CronSecretPath:     getEnv("CRON_SECRET_PATH", ""),
			RateLimitPerSecond: getEnvAsFloat("CRON_RATE_LIMIT", 1),
			RateLimitBurst:     getEnvAsInt("CRON_RATE_BURST", 5),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Gateway: GatewayConfig{
			BaseURL:          getEnv("GATEWAY_BASE_URL", ""),
			APIKey:           getEnv("GATEWAY_API_KEY", ""),
			APIKeySecretPath: getEnv("GATEWAY_API_KEY_SECRET_PATH", ""),
			Timeout:          getEnvAsDuration("GATEWAY_TIMEOUT", 30*time.Second),
			MaxRetries:       getEnvAsInt("GATEWAY_MAX_RETRIES", 2),
			FailureThreshold: uint32(getEnvAsInt("GATEWAY_FAILURE_THRESHOLD", 5)),
			OpenTimeout:      getEnvAsDuration("GATEWAY_OPEN_TIMEOUT", 30*time.Second),
		},
		Secrets: SecretsConfig{
			Backend:         getEnv("SECRET_MANAGER", "local"),
			CacheTTL:        getEnvAsDuration("SECRET_CACHE_TTL", 5*time.Minute),
			LocalPath:       getEnv("SECRETS_LOCAL_PATH", "./secrets"),
			AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
			AWSProfile:      getEnv("AWS_PROFILE", ""),
			AWSEndpoint:     getEnv("AWS_SECRETS_ENDPOINT", ""),
			VaultAddress:    getEnv("VAULT_ADDR", ""),
			VaultAuthMethod: getEnv("VAULT_AUTH_METHOD", "token"),
			VaultToken:      getEnv("VAULT_TOKEN", ""),
			VaultRoleID:     getEnv("VAULT_ROLE_ID", ""),
			VaultSecretID:   getEnv("VAULT_SECRET_ID", ""),
			VaultNamespace:  getEnv("VAULT_NAMESPACE", ""),
			VaultMountPath:  getEnv("VAULT_MOUNT_PATH", "secret"),
			VaultKVVersion:  getEnv("VAULT_KV_VERSION", "v2"),
		},
		Billing: BillingConfig{
			Currency:           strings.ToUpper(getEnv("BILLING_CURRENCY", "USD")),
			TrialDays:          getEnvAsInt("BILLING_TRIAL_DAYS", 0),
			GraceDays:          getEnvAsInt("BILLING_GRACE_DAYS", 0),
			MembershipPrice:    price,
			IsTrialInclusive:   getEnvAsBool("BILLING_TRIAL_INCLUSIVE", false),
			MaxCatchUpRenewals: getEnvAsInt("BILLING_MAX_CATCH_UP", 24),
			LockTTL:            getEnvAsDuration("BILLING_LOCK_TTL", 2*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:   getEnvAsBool("SCHEDULER_ENABLED", true),
			Spec:      getEnv("SCHEDULER_SPEC", "@every 1h"),
			BatchSize: getEnvAsInt("SCHEDULER_BATCH_SIZE", 100),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is required")
	}
	if c.Gateway.APIKey == "" && c.Gateway.APIKeySecretPath == "" {
		return fmt.Errorf("GATEWAY_API_KEY or GATEWAY_API_KEY_SECRET_PATH is required")
	}
	if c.Server.CronSecret == "" && c.Server.CronSecretPath == "" {
		return fmt.Errorf("CRON_SECRET or CRON_SECRET_PATH is required")
	}
	if len(c.Billing.Currency) != 3 {
		return fmt.Errorf("BILLING_CURRENCY must be a 3 letter code, got %q", c.Billing.Currency)
	}
	if c.Billing.TrialDays < 0 || c.Billing.GraceDays < 0 {
		return fmt.Errorf("billing trial and grace days must not be negative")
	}
	if c.Billing.MembershipPrice.IsNegative() {
		return fmt.Errorf("BILLING_MEMBERSHIP_PRICE must not be negative")
	}
	if c.Billing.MaxCatchUpRenewals < 1 {
		return fmt.Errorf("BILLING_MAX_CATCH_UP must be at least 1")
	}
	if c.Scheduler.BatchSize < 1 {
		return fmt.Errorf("SCHEDULER_BATCH_SIZE must be at least 1")
	}
	switch c.Secrets.Backend {
	case "local", "aws":
	case "vault":
		if c.Secrets.VaultAddress == "" {
			return fmt.Errorf("VAULT_ADDR is required when SECRET_MANAGER=vault")
		}
	default:
		return fmt.Errorf("unknown SECRET_MANAGER %q", c.Secrets.Backend)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
