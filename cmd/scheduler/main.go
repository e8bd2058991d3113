package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/naimprince010-ship-it/isp-billing/internal/app"
	"github.com/naimprince010-ship-it/isp-billing/internal/cache"
	"github.com/naimprince010-ship-it/isp-billing/internal/config"
	"github.com/naimprince010-ship-it/isp-billing/internal/metrics"
	"github.com/naimprince010-ship-it/isp-billing/internal/notify"
	"github.com/naimprince010-ship-it/isp-billing/internal/service"
	"github.com/naimprince010-ship-it/isp-billing/pkg/logger"
)

const jobTimeout = 30 * time.Minute

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
	logg = logg.Named("scheduler")

	store, closeStore, err := app.OpenStore(context.Background(), cfg, logg)
	if err != nil {
		logg.Fatal("failed to initialize store", zap.Error(err))
	}
	defer closeStore()

	m := metrics.New(prometheus.DefaultRegisterer, metrics.Config{ServiceName: "isp-billing-scheduler", Environment: cfg.Server.Env})

	var devices notify.DeviceSync = notify.NewLogNotifier(logg)
	var notifier notify.Notifier = notify.NewLogNotifier(logg)
	if cfg.RabbitMQ.URL != "" {
		conn, err := notify.ConnectRabbitMQ(cfg.RabbitMQ.URL, logg)
		if err != nil {
			logg.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer conn.Close()
		publisher := notify.NewPublisher(conn, logg)
		devices, notifier = publisher, publisher
	}
	dispatcher := notify.NewDispatcher(notifier, devices, m, logg)

	var summaries cache.BillSummaryCache = cache.NoopCache{}
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			logg.Fatal("failed to initialize redis", zap.Error(err))
		}
		defer client.Close()
		summaries = cache.NewRedisCache(client, cfg.Redis.CacheTTL)
	}

	billing := service.NewBillingService(store, summaries, dispatcher, m, cfg, logg)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location()))
	if err := setupCronJobs(c, cfg, billing, logg); err != nil {
		logg.Fatal("failed to schedule jobs", zap.Error(err))
	}

	c.Start()
	logg.Info("scheduler started", zap.String("timezone", cfg.Location().String()))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down scheduler")
	<-c.Stop().Done()
	dispatcher.Wait()
	logg.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, billing *service.BillingService, logg *zap.Logger) error {
	// Monthly bill run, first day of the month by default
	_, err := c.AddFunc(cfg.Scheduler.BillGenerationCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		report, err := billing.GenerateMonthlyBills(ctx, time.Now())
		if err != nil {
			logg.Error("monthly bill generation failed", zap.Error(err))
			return
		}
		logg.Info("monthly bill generation finished", zap.Int("created", report.Created), zap.Int("failed", report.Failed))
	})
	if err != nil {
		return err
	}

	// Daily auto-suspend of customers with overdue bills
	_, err = c.AddFunc(cfg.Scheduler.AutoSuspendCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		count, err := billing.SuspendOverdueCustomers(ctx, time.Now())
		if err != nil {
			logg.Error("auto suspend failed", zap.Error(err))
			return
		}
		logg.Info("auto suspend finished", zap.Int("suspended", count))
	})
	if err != nil {
		return err
	}

	logg.Info("cron jobs scheduled",
		zap.String("bill_generation", cfg.Scheduler.BillGenerationCron),
		zap.String("auto_suspend", cfg.Scheduler.AutoSuspendCron),
	)
	return nil
}
