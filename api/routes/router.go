package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velara-labs/cryptomart-backend/api/controllers"
	"github.com/velara-labs/cryptomart-backend/api/middleware"
	internalauth "github.com/velara-labs/cryptomart-backend/internal/auth"
	internaldisputes "github.com/velara-labs/cryptomart-backend/internal/disputes"
	internalledger "github.com/velara-labs/cryptomart-backend/internal/ledger"
	internalmoderation "github.com/velara-labs/cryptomart-backend/internal/moderation"
	internalnotifications "github.com/velara-labs/cryptomart-backend/internal/notifications"
	internalorders "github.com/velara-labs/cryptomart-backend/internal/orders"
	"github.com/velara-labs/cryptomart-backend/pkg/auth/session"
	"github.com/velara-labs/cryptomart-backend/pkg/config"
	"github.com/velara-labs/cryptomart-backend/pkg/db"
	"github.com/velara-labs/cryptomart-backend/pkg/enums"
	"github.com/velara-labs/cryptomart-backend/pkg/logger"
	"github.com/velara-labs/cryptomart-backend/pkg/metrics"
	"github.com/velara-labs/cryptomart-backend/pkg/redis"
)

// Services bundles the domain services the router exposes over HTTP.
type Services struct {
	Auth          internalauth.Service
	Orders        internalorders.Service
	Disputes      internaldisputes.Service
	Moderation    internalmoderation.Service
	Notifications internalnotifications.Service
	Ledger        internalledger.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	registry *prometheus.Registry,
	services Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(services.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(services.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(services.Auth, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.MyOrders(services.Orders, logg))
			r.Post("/{orderId}/dispute", controllers.OpenDispute(services.Orders, logg))
			r.Post("/{orderId}/deliver", controllers.MarkDelivered(services.Orders, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(services.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(services.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(services.Notifications, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrders(services.Orders, logg))
			r.Get("/{orderId}", controllers.AdminOrderDetail(services.Orders, logg))
			r.Post("/{orderId}/confirm", controllers.AdminOrderConfirm(services.Orders, logg))
			r.Post("/{orderId}/refund", controllers.AdminOrderRefund(services.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminOrderUpdateStatus(services.Orders, logg))
			r.Post("/{orderId}/disputes/resolve", controllers.AdminResolveDispute(services.Disputes, logg))
		})

		r.Get("/v1/disputes", controllers.AdminDisputes(services.Disputes, logg))

		r.Route("/v1/listings", func(r chi.Router) {
			r.Get("/", controllers.AdminModerationQueue(services.Moderation, enums.ModerationKindListing, logg))
			r.Patch("/{itemId}/approve", controllers.AdminModerationApprove(services.Moderation, enums.ModerationKindListing, logg))
			r.Patch("/{itemId}/reject", controllers.AdminModerationReject(services.Moderation, enums.ModerationKindListing, logg))
			r.Post("/{itemId}/reconsider", controllers.AdminModerationReconsider(services.Moderation, enums.ModerationKindListing, logg))
		})

		r.Route("/v1/applications", func(r chi.Router) {
			r.Get("/", controllers.AdminModerationQueue(services.Moderation, enums.ModerationKindVendorApplication, logg))
			r.Patch("/{itemId}/approve", controllers.AdminModerationApprove(services.Moderation, enums.ModerationKindVendorApplication, logg))
			r.Patch("/{itemId}/reject", controllers.AdminModerationReject(services.Moderation, enums.ModerationKindVendorApplication, logg))
			r.Post("/{itemId}/reconsider", controllers.AdminModerationReconsider(services.Moderation, enums.ModerationKindVendorApplication, logg))
		})

		r.Get("/v1/ledger", controllers.AdminLedger(services.Ledger, logg))
	})

	return r
}
