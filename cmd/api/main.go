package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soukly/soukly-backend/api/controllers"
	"github.com/soukly/soukly-backend/api/routes"
	"github.com/soukly/soukly-backend/internal/disputes"
	"github.com/soukly/soukly-backend/internal/ledger"
	"github.com/soukly/soukly-backend/internal/payouts"
	"github.com/soukly/soukly-backend/internal/shipping"
	"github.com/soukly/soukly-backend/internal/shipping/carriers"
	"github.com/soukly/soukly-backend/internal/transactions"
	"github.com/soukly/soukly-backend/internal/wallets"
	carrierwebhooks "github.com/soukly/soukly-backend/internal/webhooks/carrier"
	"github.com/soukly/soukly-backend/pkg/config"
	"github.com/soukly/soukly-backend/pkg/db"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/metrics"
	"github.com/soukly/soukly-backend/pkg/migrate"
	"github.com/soukly/soukly-backend/pkg/outbox"
	"github.com/soukly/soukly-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	registry := prometheus.NewRegistry()
	webhookMx := metrics.NewWebhookMetrics(registry)

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

	disputeSvc, err := disputes.NewService(disputes.NewRepository(gdb), dbClient, transactionSvc, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispute service", err)
		os.Exit(1)
	}

	payoutSvc, err := payouts.NewService(payouts.NewRepository(gdb), dbClient, walletSvc, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout service", err)
		os.Exit(1)
	}

	webhookSvc, err := carrierwebhooks.NewService(shippingSvc, redisClient, cfg.Escrow.WebhookDedupeTTL, webhookMx, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Params{
		Config: cfg,
		Logger: logg,
		Redis:  redisClient,
		ReadyDeps: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Registry:     registry,
		Transactions: transactionSvc,
		Wallets:      walletSvc,
		Ledger:       ledgerSvc,
		Payouts:      payoutSvc,
		Shipping:     shippingSvc,
		Disputes:     disputeSvc,
		Webhooks:     webhookSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
