package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/app"
	"github.com/naimprince010-ship-it/isp-billing/internal/cache"
	"github.com/naimprince010-ship-it/isp-billing/internal/config"
	"github.com/naimprince010-ship-it/isp-billing/internal/handler"
	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
	"github.com/naimprince010-ship-it/isp-billing/internal/notify"
	"github.com/naimprince010-ship-it/isp-billing/internal/reconciliation"
	"github.com/naimprince010-ship-it/isp-billing/internal/service"
	"github.com/naimprince010-ship-it/isp-billing/pkg/logger"
	"github.com/naimprince010-ship-it/isp-billing/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	zap.ReplaceGlobals(logg)

	ctx := context.Background()

	// Initialize storage
	store, closeStore, err := app.OpenStore(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("failed to initialize store", zap.Error(err))
	}
	defer closeStore()

	// Initialize Redis
	redisClient, summaries := initCache(cfg, logg)
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer, metrics.Config{ServiceName: "isp-billing", Environment: cfg.Server.Env})

	// Initialize notifications
	notifier, devices, broker := initNotify(cfg, logg)
	if broker != nil {
		defer broker.Close()
	}
	dispatcher := notify.NewDispatcher(notifier, devices, m, logg)

	// Initialize services
	payments := service.NewPaymentService(store, reconciliation.NewEngine(), summaries, dispatcher, m, cfg, logg)
	approvals := service.NewApprovalService(store, payments, m, logg)
	provisioning := service.NewProvisioningService(store, m, cfg, logg)
	billing := service.NewBillingService(store, summaries, dispatcher, m, cfg, logg)

	billingHandler := handler.NewBillingHandler(payments, approvals, provisioning, billing, logg)
	var brokerHealth handler.BrokerHealth
	if broker != nil {
		brokerHealth = broker
	}
	healthHandler := handler.NewHealthHandler(store, redisClient, brokerHealth, cfg.Health.Timeout)

	// Setup routes
	router := setupRoutes(billingHandler, healthHandler, logg)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logg.Info("server starting", zap.String("addr", server.Addr), zap.String("driver", cfg.Database.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
	}
	dispatcher.Wait()

	logg.Info("server exited")
}

func initCache(cfg *config.Config, logg *zap.Logger) (*redis.Client, cache.BillSummaryCache) {
	if cfg.Redis.URL == "" {
		logg.Info("REDIS_URL not set, bill summaries are not cached")
		return nil, cache.NoopCache{}
	}

	client, err := cache.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		logg.Fatal("failed to initialize redis", zap.Error(err))
	}
	return client, cache.NewRedisCache(client, cfg.Redis.CacheTTL)
}

func initNotify(cfg *config.Config, logg *zap.Logger) (notify.Notifier, notify.DeviceSync, *notify.RabbitMQConnection) {
	if cfg.RabbitMQ.URL == "" {
		logg.Info("RABBITMQ_URL not set, notifications are logged only")
		n := notify.NewLogNotifier(logg)
		return n, n, nil
	}

	conn, err := notify.ConnectRabbitMQ(cfg.RabbitMQ.URL, logg)
	if err != nil {
		logg.Fatal("failed to connect to rabbitmq", zap.Error(err))
	}
	publisher := notify.NewPublisher(conn, logg)
	return publisher, publisher, conn
}

func setupRoutes(billingHandler *handler.BillingHandler, healthHandler *handler.HealthHandler, logg *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.RequestIDMiddleware, response.LoggingMiddleware(logg), response.CORSMiddleware)

	healthHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API routes
	billingHandler.Register(router.PathPrefix("/api/v1").Subrouter())

	return router
}
