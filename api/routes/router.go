package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soukly/soukly-backend/api/controllers"
	"github.com/soukly/soukly-backend/api/middleware"
	"github.com/soukly/soukly-backend/internal/disputes"
	"github.com/soukly/soukly-backend/internal/ledger"
	"github.com/soukly/soukly-backend/internal/payouts"
	"github.com/soukly/soukly-backend/internal/shipping"
	"github.com/soukly/soukly-backend/internal/transactions"
	"github.com/soukly/soukly-backend/internal/wallets"
	carrierwebhooks "github.com/soukly/soukly-backend/internal/webhooks/carrier"
	"github.com/soukly/soukly-backend/pkg/config"
	"github.com/soukly/soukly-backend/pkg/enums"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/redis"
)

// Params carries everything the router mounts. cmd/api owns construction and
// lifecycle of each dependency.
type Params struct {
	Config       *config.Config
	Logger       *logger.Logger
	Redis        *redis.Client
	ReadyDeps    map[string]controllers.Pinger
	Registry     prometheus.Gatherer
	Transactions transactions.Service
	Wallets      wallets.Service
	Ledger       ledger.Service
	Payouts      payouts.Service
	Shipping     shipping.Service
	Disputes     disputes.Service
	Webhooks     carrierwebhooks.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.ReadyDeps))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	// Carrier callbacks are authenticated by payload shape and dedupe, not by
	// a bearer token; carriers cannot hold one.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/carriers/{carrier}", controllers.CarrierWebhook(p.Webhooks, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", controllers.TransactionCreate(p.Transactions, logg))
			r.Get("/purchases", controllers.TransactionPurchases(p.Transactions, logg))
			r.Get("/sales", controllers.TransactionSales(p.Transactions, logg))
			r.Route("/{transactionId}", func(r chi.Router) {
				r.Get("/", controllers.TransactionDetail(p.Transactions, logg))
				r.Post("/mark-shipped", controllers.TransactionMarkShipped(p.Transactions, logg))
				r.Post("/confirm-delivery", controllers.TransactionConfirmDelivery(p.Transactions, logg))
				r.Post("/label", controllers.ShippingGenerateLabel(p.Shipping, logg))
				r.Get("/label", controllers.ShippingLabelDetail(p.Shipping, p.Transactions, logg))
				r.Get("/tracking", controllers.ShippingTracking(p.Shipping, p.Transactions, logg))
				r.Get("/disputes", controllers.DisputeListForTransaction(p.Disputes, p.Transactions, logg))
			})
		})

		r.Get("/shipping/quote", controllers.ShippingQuote(p.Shipping, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletDetail(p.Wallets, logg))
			r.Get("/entries", controllers.WalletEntries(p.Wallets, logg))
			r.Get("/ledger", controllers.WalletLedger(p.Ledger, logg))
			r.Post("/payouts", controllers.PayoutRequest(p.Payouts, logg))
			r.Get("/payouts", controllers.PayoutList(p.Payouts, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", controllers.DisputeOpen(p.Disputes, logg))
			r.Get("/{disputeId}", controllers.DisputeDetail(p.Disputes, p.Transactions, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/disputes", controllers.DisputeListOpen(p.Disputes, logg))
		r.Post("/disputes/{disputeId}/resolve", controllers.DisputeResolve(p.Disputes, logg))
		r.Post("/shipping/scans", controllers.ShippingManualScan(p.Shipping, logg))
		r.Get("/transactions/{transactionId}/ledger", controllers.LedgerForTransaction(p.Ledger, logg))
		r.Post("/payouts/{payoutId}/paid", controllers.PayoutMarkPaid(p.Payouts, logg))
		r.Post("/payouts/{payoutId}/failed", controllers.PayoutMarkFailed(p.Payouts, logg))
	})

	return r
}
