package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kuromall/api/internal/handlers"
	"github.com/kuromall/api/internal/platform/config"
	"github.com/kuromall/api/internal/platform/events"
	"github.com/kuromall/api/internal/platform/metrics"
	"github.com/kuromall/api/internal/platform/observability"
	"github.com/kuromall/api/internal/repositories/postgres"
	"github.com/kuromall/api/internal/services"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run database migrations", zap.Error(err))
		}
	}

	store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()

	publisher, closePublisher := newEventPublisher(logger, cfg)
	defer func() {
		if err := closePublisher(); err != nil {
			logger.Warn("event publisher close error", zap.Error(err))
		}
	}()

	serviceLogger := observability.ServiceLogger(logger.Named("services"))

	orderRepo := postgres.NewOrderRepository(store)
	orderItemRepo := postgres.NewOrderItemRepository(store)
	statusLogRepo := postgres.NewOrderStatusLogRepository(store)
	skuRepo := postgres.NewSkuRepository(store)
	productRepo := postgres.NewProductRepository(store)
	paymentRepo := postgres.NewPaymentRepository(store)
	cartItemRepo := postgres.NewCartItemRepository(store)

	inventoryService, err := services.NewInventoryService(services.InventoryServiceDeps{
		Skus:   skuRepo,
		Events: publisher,
		Clock:  time.Now,
		Logger: serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise inventory service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		UnitOfWork: store,
		Orders:     orderRepo,
		OrderItems: orderItemRepo,
		StatusLogs: statusLogRepo,
		Skus:       skuRepo,
		Products:   productRepo,
		CartItems:  cartItemRepo,
		Inventory:  inventoryService,
		Events:     publisher,
		Clock:      time.Now,
		Logger:     serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	paymentService, err := services.NewPaymentService(services.PaymentServiceDeps{
		Payments:    paymentRepo,
		Orders:      orderRepo,
		StatusLogs:  statusLogRepo,
		Events:      publisher,
		OrderEvents: publisher,
		Clock:       time.Now,
		Logger:      serviceLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise payment service", zap.Error(err))
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:        logger.Named("http"),
		Metrics:       metrics.New(),
		Orders:        orderService,
		Payments:      paymentService,
		Health:        store,
		JWTSecret:     cfg.JWTSecret,
		WebhookSecret: cfg.WebhookSecret,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("kuromall api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// eventPublisher is the union of the per-aggregate publisher interfaces the
// services accept.
type eventPublisher interface {
	services.OrderEventPublisher
	services.PaymentEventPublisher
	services.StockEventPublisher
}

func newEventPublisher(logger *zap.Logger, cfg config.Config) (eventPublisher, func() error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		logger.Warn("kafka brokers not configured; domain events disabled")
		return events.NopPublisher{}, func() error { return nil }
	}
	publisher := events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
	logger.Info("kafka event publisher initialised",
		zap.Strings("brokers", brokers),
		zap.String("topic", cfg.KafkaTopic),
	)
	return publisher, publisher.Close
}
