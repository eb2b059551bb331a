package main

import (
	"context"
	"log"
	"time"

	"github.com/dreygur/shipsync/internal/core/cache"
	"github.com/dreygur/shipsync/internal/core/config"
	"github.com/dreygur/shipsync/internal/core/logger"
	"github.com/dreygur/shipsync/internal/core/server"
	courieradapter "github.com/dreygur/shipsync/internal/features/couriers/adapters"
	courierhandler "github.com/dreygur/shipsync/internal/features/couriers/handler"
	"github.com/dreygur/shipsync/internal/features/couriers/registry"
	courierservice "github.com/dreygur/shipsync/internal/features/couriers/service"
	orderadapter "github.com/dreygur/shipsync/internal/features/orders/adapters"
	webhookhandler "github.com/dreygur/shipsync/internal/features/webhooks/handler"

	"go.uber.org/zap"
)

// @title Shipsync API
// @version 1.0
// @description Order-to-courier shipment synchronization API integrating Steadfast, Pathao and RedX.
// @contact.name API Support
// @contact.email support@shipsync.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Shipment index store
	redisCache, err := cache.NewRedisAdapter(cfg.RedisURL)
	if err != nil {
		l.Fatal("Failed to create Redis adapter", zap.Error(err))
	}
	defer redisCache.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		cancel()
		l.Fatal("Redis ping failed", zap.Error(err))
	}
	cancel()

	// Host platform gateway and health check
	wcGateway := orderadapter.NewWooCommerceGateway(cfg.WooCommerce)
	healthCtx, cancelHealth := context.WithTimeout(context.Background(), 15*time.Second)
	if err := wcGateway.HealthCheck(healthCtx); err != nil {
		cancelHealth()
		l.Fatal("WooCommerce Health Check Failed", zap.Error(err))
	}
	cancelHealth()
	l.Info("WooCommerce connection verified")

	// Courier adapters; the set of providers is closed at build time
	reg := registry.New(
		courieradapter.NewSteadfastAdapter(cfg.Steadfast, nil),
		courieradapter.NewPathaoAdapter(cfg.Pathao, nil),
		courieradapter.NewRedxAdapter(cfg.Redx, nil),
	)
	for _, courier := range reg.Enabled() {
		l.Info("Courier enabled", zap.String("id", courier.ID()), zap.String("name", courier.Name()))
	}

	shipmentIndex := courieradapter.NewRedisShipmentIndex(redisCache)
	couriers := courierservice.NewCourierService(reg, wcGateway, shipmentIndex)

	courierHdl := courierhandler.NewCourierHandler(couriers)
	webhookHdl := webhookhandler.NewWebhookHandler(couriers, cfg.Pathao.WebhookSecret)

	srv := server.New(cfg)

	// Register Routes
	api := srv.App.Group("/api/v1")
	api.Get("/couriers", courierHdl.ListCouriers)
	api.Get("/couriers/:courier/settings", courierHdl.GetSettingsFields)
	api.Get("/couriers/:courier/tracking-url", courierHdl.GetTrackingURL)
	api.Get("/couriers/:courier/balance", courierHdl.GetBalance)
	api.Post("/couriers/:courier/validate", courierHdl.ValidateCredentials)
	api.Post("/couriers/:courier/shipments", courierHdl.CreateShipment)
	api.Post("/couriers/:courier/shipments/bulk", courierHdl.CreateBulkShipments)
	api.Get("/couriers/:courier/status/:type/:identifier", courierHdl.GetDeliveryStatus)

	srv.App.Post("/webhooks/:courier", webhookHdl.Handle)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
