package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cassiomorais/checkout/internal/application/relay"
	"github.com/cassiomorais/checkout/internal/bootstrap"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/infrastructure/postgres"
	infraRedis "github.com/cassiomorais/checkout/internal/infrastructure/redis"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "checkout-worker", "checkout_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Repositories ---
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	workerCfg := app.Config.Worker

	// --- Outbox relay ---
	outboxRelay := relay.New(txManager, outboxRepo, streamProducer, relay.Config{
		BatchSize:    int(workerCfg.BatchSize),
		PollInterval: workerCfg.OutboxPollInterval,
		Retention:    workerCfg.OutboxRetention,
	}, app.Logger)
	outboxRelay.OnPass = func(res relay.Result) {
		app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.TransactionStream, "success").Add(float64(res.Published))
		app.Metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.TransactionStream, "error").Add(float64(res.Failed))
	}

	// --- Reconciliation stream consumer ---
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.ReconciliationStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Failed to create consumer group")
	}

	app.Logger.Info().
		Str("stream", consumer.Stream()).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Outbox relay (polls the outbox table and publishes to Redis Streams).
	g.Go(func() error {
		return outboxRelay.Run(gCtx)
	})

	// 2. Reconciliation consumer (surfaces charges that need a human).
	g.Go(func() error {
		return runReconciliationConsumer(gCtx, app.Logger, consumer, app.Metrics)
	})

	// 3. Expired idempotency keys.
	g.Go(func() error {
		return runIdempotencyCleanup(gCtx, app.Logger, idempotencyRepo, workerCfg.CleanupInterval)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func runReconciliationConsumer(
	ctx context.Context,
	logger zerolog.Logger,
	consumer *infraRedis.StreamConsumer,
	metrics *observability.Metrics,
) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error().Err(err).Msg("Failed to read from stream")
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			start := time.Now()
			d, err := infraRedis.DecodeDiscrepancy(msg.Values)
			if err != nil {
				logger.Error().Err(err).Str("message_id", msg.ID).Msg("Dropping malformed reconciliation message")
				metrics.WorkerMessagesProcessed.WithLabelValues(consumer.Stream(), "invalid").Inc()
			} else {
				logger.Error().
					Str("transaction_id", d.TransactionID.String()).
					Str("gateway_transaction_id", d.GatewayTransactionID).
					Str("gateway_status", string(d.GatewayStatus)).
					Str("local_status", string(d.LocalStatus)).
					Str("reason", string(d.Reason)).
					Str("detail", d.Detail).
					Int64("amount_in_cents", d.AmountInCents).
					Str("currency", d.Currency).
					Time("occurred_at", d.OccurredAt).
					Msg("Payment discrepancy requires manual reconciliation")
				metrics.WorkerMessagesProcessed.WithLabelValues(consumer.Stream(), "success").Inc()
			}

			if err := consumer.Ack(ctx, msg.ID); err != nil {
				logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to ack message")
			}
			metrics.WorkerProcessingDuration.WithLabelValues(consumer.Stream()).Observe(time.Since(start).Seconds())
		}
	}
}

func runIdempotencyCleanup(
	ctx context.Context,
	logger zerolog.Logger,
	repo *postgres.IdempotencyRepository,
	interval time.Duration,
) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		n, err := repo.Cleanup(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Idempotency cleanup failed")
			continue
		}
		if n > 0 {
			logger.Info().Int64("deleted", n).Msg("Removed expired idempotency keys")
		}
	}
}
