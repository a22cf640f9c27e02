package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sabzico/fulfillment-backend/api/controllers"
	deliverycontrollers "github.com/sabzico/fulfillment-backend/api/controllers/deliveries"
	ordercontrollers "github.com/sabzico/fulfillment-backend/api/controllers/orders"
	returncontrollers "github.com/sabzico/fulfillment-backend/api/controllers/returns"
	walletcontrollers "github.com/sabzico/fulfillment-backend/api/controllers/wallet"
	"github.com/sabzico/fulfillment-backend/api/middleware"
	"github.com/sabzico/fulfillment-backend/internal/deliveries"
	"github.com/sabzico/fulfillment-backend/internal/notifications"
	"github.com/sabzico/fulfillment-backend/internal/orders"
	"github.com/sabzico/fulfillment-backend/internal/partners"
	"github.com/sabzico/fulfillment-backend/internal/returns"
	"github.com/sabzico/fulfillment-backend/internal/wallet"
	"github.com/sabzico/fulfillment-backend/pkg/config"
	"github.com/sabzico/fulfillment-backend/pkg/db"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
	"github.com/sabzico/fulfillment-backend/pkg/pubsub"
	"github.com/sabzico/fulfillment-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pubsubP pubsub.Pinger,
	metricsGatherer prometheus.Gatherer,
	ordersRepo orders.Repository,
	ordersSvc orders.Service,
	deliveriesSvc deliveries.Service,
	returnsSvc returns.Service,
	walletSvc wallet.Service,
	notificationsSvc notifications.Service,
	partnersSvc partners.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	// typed-nil guard: a nil *redis.Client must read as "no store" downstream
	var idemStore redis.IdempotencyStore
	var otpStore middleware.OtpAttemptStore
	var redisP redis.Pinger
	if redisClient != nil {
		idemStore = redisClient
		otpStore = redisClient
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, pubsubP))
	})

	if metricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersRepo, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(ordersSvc, logg))
		})

		r.Route("/returns", func(r chi.Router) {
			r.Post("/", returncontrollers.Create(returnsSvc, logg))
			r.Get("/", returncontrollers.List(returnsSvc, logg))
			r.Get("/{returnId}", returncontrollers.Detail(returnsSvc, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balances", walletcontrollers.Balances(walletSvc, logg))
			r.Get("/transactions", walletcontrollers.Transactions(walletSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsSvc, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsSvc, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsSvc, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole("vendor", logg))
			r.Get("/items", ordercontrollers.VendorItems(ordersRepo, logg))
			r.Post("/orders/{orderId}/decision", ordercontrollers.VendorDecision(ordersSvc, logg))
			r.Post("/items/{itemId}/advance", ordercontrollers.AdvanceItem(ordersSvc, logg))
			r.Get("/returns", returncontrollers.VendorList(returnsSvc, logg))
			r.Post("/returns/{returnId}/decision", returncontrollers.VendorDecision(returnsSvc, logg))
		})

		r.Route("/partner", func(r chi.Router) {
			r.Use(middleware.RequireRole("delivery_partner", logg))
			r.Route("/deliveries", func(r chi.Router) {
				r.Get("/", deliverycontrollers.PartnerList(deliveriesSvc, logg))
				r.Get("/{deliveryId}", deliverycontrollers.Detail(deliveriesSvc, logg))
				r.Post("/{deliveryId}/advance", deliverycontrollers.PartnerAdvance(deliveriesSvc, logg))
				r.With(middleware.OtpRateLimit("delivery", "deliveryId", cfg.Otp, otpStore, logg)).
					Post("/{deliveryId}/verify-otp", deliverycontrollers.PartnerVerifyOtp(deliveriesSvc, logg))
			})
			r.With(middleware.OtpRateLimit("return", "returnId", cfg.Otp, otpStore, logg)).
				Post("/returns/{returnId}/verify-otp", returncontrollers.PartnerVerifyPickupOtp(returnsSvc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/partners", controllers.AdminListPartners(partnersSvc, logg))
			r.Post("/items/{itemId}/advance", ordercontrollers.AdvanceItem(ordersSvc, logg))
			r.Post("/deliveries/{deliveryId}/assign", deliverycontrollers.AdminAssign(deliveriesSvc, logg))
			r.Post("/returns/{returnId}/schedule-pickup", returncontrollers.AdminSchedulePickup(returnsSvc, logg))
			r.Post("/returns/{returnId}/complete", returncontrollers.AdminComplete(returnsSvc, logg))
		})
	})

	return r
}
