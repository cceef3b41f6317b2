package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/datavend-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/datavend-backend/api/controllers/orders"
	"github.com/angelmondragon/datavend-backend/api/middleware"
	"github.com/angelmondragon/datavend-backend/internal/commissions"
	"github.com/angelmondragon/datavend-backend/internal/notifications"
	"github.com/angelmondragon/datavend-backend/internal/orders"
	"github.com/angelmondragon/datavend-backend/internal/wallet"
	"github.com/angelmondragon/datavend-backend/pkg/config"
	"github.com/angelmondragon/datavend-backend/pkg/enums"
	"github.com/angelmondragon/datavend-backend/pkg/logger"
	"github.com/angelmondragon/datavend-backend/pkg/metrics"
)

// redisStore is what the request guards need from Redis.
type redisStore interface {
	middleware.IdempotencyStore
	middleware.RateLimiterStore
}

// Dependencies are the services and backends the HTTP surface is built from.
type Dependencies struct {
	Readiness     controllers.ReadinessDeps
	Redis         redisStore
	Wallet        wallet.Service
	Orders        orders.Service
	Commissions   commissions.Service
	Notifications notifications.Service
	Jobs          controllers.JobTrigger
	DeadLetters   controllers.DeadLetters
	// HTTP is optional; requests are only logged when it is nil.
	HTTP *metrics.HTTPMetrics
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTP),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	topUpPolicy := middleware.NewRateLimitPolicy("top-up", cfg.RateLimit.TopUpWindow, cfg.RateLimit.TopUpLimit)
	orderPolicy := middleware.NewRateLimitPolicy("order-create", cfg.RateLimit.OrderWindow, cfg.RateLimit.OrderLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Readiness, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Get("/ping", controllers.PrivatePing())

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(deps.Wallet, logg))
			r.Get("/transactions", controllers.WalletTransactions(deps.Wallet, logg))
			r.With(middleware.RateLimit(topUpPolicy, deps.Redis, logg)).
				Post("/top-ups", controllers.WalletRequestTopUp(deps.Wallet, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.With(middleware.RateLimit(orderPolicy, deps.Redis, logg)).
				Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.Post("/{orderId}/report", ordercontrollers.Report(deps.Orders, logg))
			r.Post("/{orderId}/retry", ordercontrollers.Retry(deps.Orders, logg))
		})

		r.Route("/commissions", func(r chi.Router) {
			r.Get("/", controllers.ListCommissions(deps.Commissions, logg))
			r.Get("/statement", controllers.CommissionStatement(deps.Commissions, logg))
			r.Get("/summaries", controllers.CommissionSummaries(deps.Commissions, logg))
			r.Get("/{recordId}", controllers.CommissionDetail(deps.Commissions, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Get("/ping", controllers.AdminPing())

		r.Route("/top-ups", func(r chi.Router) {
			r.Get("/", controllers.AdminPendingTopUps(deps.Wallet, logg))
			r.Post("/{topUpId}/approve", controllers.AdminApproveTopUp(deps.Wallet, logg))
			r.Post("/{topUpId}/reject", controllers.AdminRejectTopUp(deps.Wallet, logg))
		})

		r.Route("/wallets/{ownerId}", func(r chi.Router) {
			r.Post("/credits", controllers.AdminWalletCredit(deps.Wallet, logg))
			r.Get("/verify", controllers.AdminWalletVerify(deps.Wallet, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/reported", ordercontrollers.AdminListReported(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Patch("/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))
			r.Patch("/{orderId}/reception", ordercontrollers.AdminUpdateReception(deps.Orders, logg))
			r.Post("/{orderId}/items/{itemId}", ordercontrollers.AdminProcessItem(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.Post("/{orderId}/refund", ordercontrollers.AdminRefundFailed(deps.Orders, logg))
		})

		r.Route("/commissions/{recordId}", func(r chi.Router) {
			r.Post("/pay", controllers.AdminPayCommission(deps.Commissions, logg))
			r.Post("/reject", controllers.AdminRejectCommission(deps.Commissions, logg))
			r.Post("/cancel", controllers.AdminCancelCommission(deps.Commissions, logg))
			r.Post("/reinstate", controllers.AdminReinstateCommission(deps.Commissions, logg))
		})

		r.Post("/jobs/{job}/run", controllers.AdminRunJob(deps.Jobs, logg))

		r.Route("/outbox/dlq", func(r chi.Router) {
			r.Get("/", controllers.AdminListDeadLetters(deps.DeadLetters, logg))
			r.Post("/{eventId}/replay", controllers.AdminReplayDeadLetter(deps.DeadLetters, logg))
		})
	})

	return r
}
