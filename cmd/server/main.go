package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/subscription-engine/internal/adapters/postgres"
	"github.com/kevin07696/subscription-engine/internal/adapters/secrets"
	"github.com/kevin07696/subscription-engine/internal/config"
	"github.com/kevin07696/subscription-engine/internal/db"
	cronHandler "github.com/kevin07696/subscription-engine/internal/handlers/cron"
	"github.com/kevin07696/subscription-engine/internal/scheduler"
	"github.com/kevin07696/subscription-engine/pkg/logging"
	"github.com/kevin07696/subscription-engine/pkg/middleware"
	"github.com/kevin07696/subscription-engine/pkg/observability"
	"github.com/kevin07696/subscription-engine/pkg/shutdown"
	"github.com/kevin07696/subscription-engine/pkg/timeutil"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Environment, cfg.Logger.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting subscription engine",
		zap.String("environment", cfg.Environment),
		zap.String("currency", cfg.Billing.Currency),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)
	health := observability.NewHealthChecker()

	// Database
	pool, err := postgres.NewPool(ctx, &postgres.PoolConfig{
		DatabaseURL:     cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	sm.RegisterNoErr("database", pool.Close)
	health.Register("database", pool)
	go postgres.MonitorPool(ctx, pool, 30*time.Second, logger)

	if err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	// Secrets
	secretStore, err := initSecretStore(ctx, cfg.Secrets, logger)
	if err != nil {
		logger.Fatal("Failed to initialize secret store", zap.Error(err))
	}
	apiKey, err := secrets.Resolve(ctx, secretStore, cfg.Gateway.APIKeySecretPath, cfg.Gateway.APIKey)
	if err != nil {
		logger.Fatal("Failed to resolve gateway API key", zap.Error(err))
	}
	cronSecret, err := secrets.Resolve(ctx, secretStore, cfg.Server.CronSecretPath, cfg.Server.CronSecret)
	if err != nil {
		logger.Fatal("Failed to resolve cron secret", zap.Error(err))
	}

	clock := timeutil.SystemClock{}
	deps, err := initDependencies(ctx, cfg, pool, apiKey, clock, logger)
	if err != nil {
		logger.Fatal("Failed to initialize dependencies", zap.Error(err))
	}
	if deps.redisPing != nil {
		health.Register("redis", deps.redisPing)
		sm.RegisterCloser("redis", deps.redisClose)
	}

	// HTTP: cron trigger
	tracker := shutdown.NewInFlightTracker("renewals", logger)
	renewals := cronHandler.NewRenewalHandler(deps.engine, tracker, clock, logger, cronSecret, cfg.Scheduler.BatchSize)
	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst, logger)

	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/cron/process-renewals", rateLimiter.HTTPHandlerFunc(renewals.ProcessRenewals))
	httpMux.HandleFunc("/cron/health", renewals.HealthCheck)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Metrics and health
	metricsServer := observability.StartMetricsServer(cfg.Server.MetricsPort, health, logger)

	// Admin gRPC: health and reflection
	grpcServer, grpcHealth := observability.NewAdminServer(logger)
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		logger.Fatal("Failed to listen", zap.Error(err))
	}
	go func() {
		logger.Info("Admin gRPC server listening", zap.Int("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(listener); err != nil {
			logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()
	go observability.SyncHealth(ctx, health, grpcHealth, 15*time.Second)

	sm.Register("metrics_server", func(ctx context.Context) error {
		return observability.ShutdownMetricsServer(ctx, metricsServer)
	})
	sm.RegisterNoErr("grpc_server", grpcServer.GracefulStop)
	sm.RegisterHTTPServer("http_server", httpServer)
	sm.RegisterNoErr("rate_limiter", rateLimiter.Shutdown)

	// Scheduler
	if cfg.Scheduler.Enabled {
		sched, err := scheduler.NewRenewalScheduler(cfg.Scheduler.Spec, deps.engine, tracker, cfg.Scheduler.BatchSize, logger)
		if err != nil {
			logger.Fatal("Failed to create renewal scheduler", zap.Error(err))
		}
		sched.Start()
		sm.Register("scheduler", sched.Shutdown)
	}
	sm.Register("renewals_in_flight", tracker.Shutdown)
	sm.RegisterNoErr("background", cancel)

	logger.Info("Subscription engine started",
		zap.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
		zap.String("scheduler_spec", cfg.Scheduler.Spec),
	)

	if err := sm.WaitForShutdown(context.Background()); err != nil {
		logger.Error("Shutdown completed with errors", zap.Error(err))
		os.Exit(1)
	}
}
