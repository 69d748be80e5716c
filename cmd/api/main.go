package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/checkout/internal/application/catalog"
	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/bootstrap"
	"github.com/cassiomorais/checkout/internal/domain/delivery"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/cassiomorais/checkout/internal/infrastructure/gateway"
	"github.com/cassiomorais/checkout/internal/infrastructure/postgres"
	infraRedis "github.com/cassiomorais/checkout/internal/infrastructure/redis"
	appHTTP "github.com/cassiomorais/checkout/internal/interfaces/http"
	"github.com/cassiomorais/checkout/internal/interfaces/http/handlers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "checkout-api", "checkout")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	cfg := app.Config

	// --- Repositories ---
	productRepo := postgres.NewProductRepository(app.Pool, app.Metrics)
	customerRepo := postgres.NewCustomerRepository(app.Pool)
	deliveryRepo := postgres.NewDeliveryRepository(app.Pool, delivery.NewFeePolicy(cfg.Delivery.BaseFee, cfg.Delivery.RegionFees))
	statusRegistry := status.NewCachedRegistry(postgres.NewStatusRepository(app.Pool))
	transactionRepo := postgres.NewTransactionRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- External services ---
	paymentGateway, err := gateway.New(cfg.Gateway, app.Metrics)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to build payment gateway")
	}
	reconciler := infraRedis.NewReconciliationPublisher(app.Redis, app.Logger, app.Metrics)

	// --- Application services ---
	orchestrator := checkout.NewOrchestrator(checkout.Ports{
		Products:     productRepo,
		Customers:    customerRepo,
		Deliveries:   deliveryRepo,
		Statuses:     statusRegistry,
		Transactions: transactionRepo,
		Gateway:      paymentGateway,
		Outbox:       outboxRepo,
		TxManager:    txManager,
		Reconciler:   reconciler,
	}, transaction.Pricing{
		Currency:           cfg.Checkout.Currency,
		TaxRateBasisPoints: cfg.Checkout.TaxRateBps,
	})

	transactionHandler := handlers.NewTransactionHandler(
		orchestrator,
		checkout.NewGetTransactionUseCase(transactionRepo),
		checkout.NewListTransactionsUseCase(transactionRepo),
		checkout.NewAcceptanceTermsUseCase(paymentGateway),
		infraRedis.NewLocker(app.Redis, cfg.Checkout.FinishLockTTL),
		app.Metrics,
	)
	productHandler := handlers.NewProductHandler(
		catalog.NewCreateProductUseCase(productRepo),
		catalog.NewGetProductUseCase(productRepo),
		catalog.NewListProductsUseCase(productRepo),
		catalog.NewAddStockUseCase(productRepo),
	)
	healthHandler := handlers.NewHealthHandler(
		handlers.Dependency{Name: "postgres", Ping: app.Pool.Ping},
		handlers.Dependency{Name: "redis", Ping: func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}},
	)

	var metricsHandler http.Handler
	if !cfg.Observability.EnableMetrics {
		metricsHandler = http.NotFoundHandler()
	}

	// --- Build router ---
	router := appHTTP.NewRouter(appHTTP.RouterDeps{
		Transactions:   transactionHandler,
		Products:       productHandler,
		Health:         healthHandler,
		Idempotency:    idempotencyRepo,
		IdempotencyTTL: cfg.Worker.IdempotencyTTL,
		Metrics:        app.Metrics,
		MetricsHandler: metricsHandler,
		Server:         cfg.Server,
		JWTSecret:      cfg.Auth.JWTSecret,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	cancel()
	app.Logger.Info().Msg("Server exited")
}
