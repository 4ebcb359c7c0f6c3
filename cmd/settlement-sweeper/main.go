package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soukly/soukly-backend/internal/ledger"
	"github.com/soukly/soukly-backend/internal/schedulers/settlement"
	"github.com/soukly/soukly-backend/internal/shipping"
	"github.com/soukly/soukly-backend/internal/shipping/carriers"
	"github.com/soukly/soukly-backend/internal/transactions"
	"github.com/soukly/soukly-backend/internal/wallets"
	"github.com/soukly/soukly-backend/pkg/config"
	"github.com/soukly/soukly-backend/pkg/db"
	"github.com/soukly/soukly-backend/pkg/instance"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/metrics"
	"github.com/soukly/soukly-backend/pkg/migrate"
	"github.com/soukly/soukly-backend/pkg/outbox"
	"github.com/soukly/soukly-backend/pkg/redis"
)

const lockKeyFormat = "sk:settlement-sweeper:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "settlement-sweeper"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "settlement-sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gdb := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	walletSvc, err := wallets.NewService(wallets.NewRepository(gdb), dbClient, ledgerSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	adapters := carriers.NewFactory(cfg.Carriers, logg)
	shippingSvc, err := shipping.NewService(shipping.NewRepository(gdb), dbClient, adapters, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipping service", err)
		os.Exit(1)
	}

	transactionSvc, err := transactions.NewService(
		transactions.NewRepository(gdb),
		dbClient,
		walletSvc,
		ledgerSvc,
		shippingSvc,
		outboxSvc,
		cfg.Escrow,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	// The lock TTL defaults inside NewRedisLock; a sweep that outlives the
	// TTL simply lets another replica take over on the next tick.
	lock, err := settlement.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	sweepMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	service, err := settlement.NewService(settlement.ServiceParams{
		Logger:       logg,
		DB:           dbClient,
		Transactions: transactionSvc,
		Lock:         lock,
		Metrics:      sweepMetrics,
		Escrow:       cfg.Escrow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":               cfg.App.Env,
		"instance":          instance.GetID(),
		"sweep_interval":    cfg.Escrow.SweepInterval.String(),
		"protection_window": cfg.Escrow.ProtectionWindow.String(),
	})
	logg.Info(ctx, "starting settlement sweeper")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "settlement sweeper stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "settlement sweeper shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
