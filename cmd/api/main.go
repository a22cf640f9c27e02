package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/sabzico/fulfillment-backend/api/routes"
	"github.com/sabzico/fulfillment-backend/internal/deliveries"
	"github.com/sabzico/fulfillment-backend/internal/notifications"
	"github.com/sabzico/fulfillment-backend/internal/orders"
	"github.com/sabzico/fulfillment-backend/internal/partners"
	"github.com/sabzico/fulfillment-backend/internal/returns"
	"github.com/sabzico/fulfillment-backend/internal/wallet"
	"github.com/sabzico/fulfillment-backend/pkg/config"
	"github.com/sabzico/fulfillment-backend/pkg/db"
	"github.com/sabzico/fulfillment-backend/pkg/db/models"
	"github.com/sabzico/fulfillment-backend/pkg/logger"
	"github.com/sabzico/fulfillment-backend/pkg/metrics"
	"github.com/sabzico/fulfillment-backend/pkg/migrate"
	"github.com/sabzico/fulfillment-backend/pkg/outbox"
	"github.com/sabzico/fulfillment-backend/pkg/redis"
)

// deliveryCreatorFunc lets the orders service reference the deliveries service
// before it exists; the closure resolves at call time.
type deliveryCreatorFunc func(ctx context.Context, tx *gorm.DB, order *models.Order, vendorID uuid.UUID, itemIDs []uuid.UUID) (*models.Delivery, error)

func (f deliveryCreatorFunc) EnsureForVendorItems(ctx context.Context, tx *gorm.DB, order *models.Order, vendorID uuid.UUID, itemIDs []uuid.UUID) (*models.Delivery, error) {
	return f(ctx, tx, order, vendorID, itemIDs)
}

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

	cfg.Service.Kind = "api"

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
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(registry)

	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	walletSvc, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	partnersSvc, err := partners.NewService(partners.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create partners service", err)
		os.Exit(1)
	}

	// The orders and deliveries services call each other: vendor acceptance
	// materializes a delivery, and OTP completion marks items delivered. The
	// func adapter breaks the construction cycle.
	var deliveriesSvc deliveries.Service
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, outboxSvc, deliveryCreatorFunc(
		func(ctx context.Context, tx *gorm.DB, order *models.Order, vendorID uuid.UUID, itemIDs []uuid.UUID) (*models.Delivery, error) {
			return deliveriesSvc.EnsureForVendorItems(ctx, tx, order, vendorID, itemIDs)
		},
	))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	deliveriesSvc, err = deliveries.NewService(deliveries.ServiceParams{
		Repository: deliveries.NewRepository(dbClient.DB()),
		TxRunner:   dbClient,
		Outbox:     outboxSvc,
		Partners:   partnersSvc,
		Orders:     ordersSvc,
		Addresses:  deliveries.NewReferenceAddressResolver(),
		Metrics:    fulfillmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	returnsSvc, err := returns.NewService(returns.ServiceParams{
		Repository: returns.NewRepository(dbClient.DB()),
		TxRunner:   dbClient,
		Outbox:     outboxSvc,
		Wallet:     walletSvc,
		Partners:   partnersSvc,
		Metrics:    fulfillmentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			nil,
			registry,
			ordersRepo,
			ordersSvc,
			deliveriesSvc,
			returnsSvc,
			walletSvc,
			notificationsSvc,
			partnersSvc,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
