package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-engine/internal/adapters/gateway"
	"github.com/kevin07696/subscription-engine/internal/adapters/memory"
	"github.com/kevin07696/subscription-engine/internal/adapters/postgres"
	"github.com/kevin07696/subscription-engine/internal/adapters/redislock"
	"github.com/kevin07696/subscription-engine/internal/adapters/secrets"
	"github.com/kevin07696/subscription-engine/internal/config"
	"github.com/kevin07696/subscription-engine/internal/domain/ports"
	"github.com/kevin07696/subscription-engine/internal/services/invoice"
	"github.com/kevin07696/subscription-engine/internal/services/lifecycle"
	"github.com/kevin07696/subscription-engine/internal/services/subscription"
	"github.com/kevin07696/subscription-engine/pkg/logging"
	"github.com/kevin07696/subscription-engine/pkg/observability"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

type dependencies struct {
	engine     *subscription.Engine
	redisPing  observability.Pinger
	redisClose interface{ Close() error }
}

func initDependencies(
	ctx context.Context,
	cfg *config.Config,
	pool *pgxpool.Pool,
	gatewayAPIKey string,
	clock timeutil.Clock,
	logger *zap.Logger,
) (*dependencies, error) {
	deps := &dependencies{}
	log := logging.NewZapLogger(logger)
	settings := cfg.Billing.Settings()

	dbExecutor := postgres.NewDBExecutor(pool)
	planRepo := postgres.NewPlanRepository(pool)
	serviceRepo := postgres.NewServiceRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	statusLogRepo := postgres.NewStatusLogRepository(pool)

	gwCfg := gateway.DefaultConfig(cfg.Gateway.BaseURL, gatewayAPIKey)
	gwCfg.Timeout = cfg.Gateway.Timeout
	gwCfg.MaxRetries = cfg.Gateway.MaxRetries
	gwCfg.FailureThreshold = cfg.Gateway.FailureThreshold
	gwCfg.OpenTimeout = cfg.Gateway.OpenTimeout
	paymentGateway := gateway.NewHTTPGateway(gwCfg, logger)

	var locker ports.ServiceLocker
	if cfg.Redis.URL != "" {
		client, err := redislock.NewClient(ctx, redislock.Config{
			URL:      cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		locker = redislock.NewLocker(client)
		deps.redisPing = observability.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		deps.redisClose = client
		logger.Info("Using redis service locks")
	} else {
		locker = memory.NewLocker(clock)
		logger.Warn("REDIS_URL not set - service locks are process local, run a single replica")
	}

	services := lifecycle.NewServiceManager(dbExecutor, serviceRepo, statusLogRepo, clock, settings, log)
	invoices := invoice.NewManager(dbExecutor, invoiceRepo, paymentGateway, clock, settings, cfg.Billing.Currency, log)

	deps.engine = subscription.NewEngine(clock, settings, services, invoices, planRepo, serviceRepo, locker, log)
	deps.engine.SetLockTTL(cfg.Billing.LockTTL)
	invoices.RegisterObserver(deps.engine)

	return deps, nil
}

// initSecretStore selects the secret backend named by SECRET_MANAGER
func initSecretStore(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretStore, error) {
	switch cfg.Backend {
	case "aws":
		return secrets.NewAWSStore(ctx, secrets.AWSConfig{
			Region:   cfg.AWSRegion,
			Profile:  cfg.AWSProfile,
			Endpoint: cfg.AWSEndpoint,
			CacheTTL: cfg.CacheTTL,
		}, logger)
	case "vault":
		return secrets.NewVaultStore(ctx, secrets.VaultConfig{
			Address:    cfg.VaultAddress,
			AuthMethod: cfg.VaultAuthMethod,
			Token:      cfg.VaultToken,
			RoleID:     cfg.VaultRoleID,
			SecretID:   cfg.VaultSecretID,
			Namespace:  cfg.VaultNamespace,
			MountPath:  cfg.VaultMountPath,
			KVVersion:  cfg.VaultKVVersion,
			CacheTTL:   cfg.CacheTTL,
		}, logger)
	default:
		logger.Warn("Using local filesystem secret store - NOT for production use",
			zap.String("path", cfg.LocalPath))
		return secrets.NewLocalStore(cfg.LocalPath, logger), nil
	}
}
