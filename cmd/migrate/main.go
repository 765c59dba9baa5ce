package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/cloudpayments-service/internal/adapters/postgres"
	"github.com/kevin07696/cloudpayments-service/internal/config"
)

var flags = flag.NewFlagSet("migrate", flag.ExitOnError)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		return
	}
	command := args[0]

	logger := zap.Must(zap.NewDevelopment())
	defer func() { _ = logger.Sync() }()

	dbCfg, err := config.LoadDatabase()
	if err != nil {
		logger.Fatal("Failed to load database configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	poolCfg := postgres.DefaultConfig(dbCfg.ConnectionString())
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 0
	pool, err := postgres.NewPool(ctx, poolCfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, command, args[1:]...); err != nil {
		logger.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
	logger.Info("Migration finished", zap.String("command", command))
}

func usage() {
	fmt.Print(`Usage: migrate COMMAND

Applies the embedded schema (orders, contacts, cloudpayments_transactions, callback_log).
Connection settings come from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME and DB_SSL_MODE.

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
    migrate status
`)
}
