package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kevin07696/subscription-engine/internal/adapters/postgres"
	"github.com/kevin07696/subscription-engine/internal/db"
	"github.com/kevin07696/subscription-engine/pkg/logging"
)

var flags = flag.NewFlagSet("migrate", flag.ExitOnError)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		os.Exit(2)
	}
	command := args[0]

	_ = godotenv.Load()

	logger, err := logging.New(os.Getenv("ENVIRONMENT"), os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := postgres.DefaultPoolConfig(databaseURL)
	cfg.MinConns = 1
	cfg.MaxConns = 2

	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Run(ctx, pool, logger, command, args[1:]...); err != nil {
		logger.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
}

func usage() {
	fmt.Print(`Usage: migrate COMMAND

Migrations are embedded in the binary. DATABASE_URL selects the database.

Commands:
    up                   Migrate the DB to the most recent version available
    up-by-one            Migrate the DB up by 1
    up-to VERSION        Migrate the DB to a specific VERSION
    down                 Roll back the version by 1
    down-to VERSION      Roll back to a specific VERSION
    redo                 Re-run the latest migration
    reset                Roll back all migrations
    status               Dump the migration status for the current DB
    version              Print the current version of the database

Examples:
    migrate up
    migrate down
    migrate status
`)
}
