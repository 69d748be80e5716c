package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/pkg/retry"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ReconciliationPublisher implements checkout.ReconciliationReporter by
// appending each discrepancy to the reconciliation stream. Every report is
// also logged so it survives a Redis outage.
type ReconciliationPublisher struct {
	producer *StreamProducer
	logger   zerolog.Logger
	metrics  *observability.Metrics
	retryCfg retry.Config
}

func NewReconciliationPublisher(client *redis.Client, logger zerolog.Logger, metrics *observability.Metrics) *ReconciliationPublisher {
	return &ReconciliationPublisher{
		producer: NewStreamProducer(client),
		logger:   logger.With().Str("component", "reconciliation").Logger(),
		metrics:  metrics,
		retryCfg: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     time.Second,
		},
	}
}

func (p *ReconciliationPublisher) Report(ctx context.Context, d checkout.Discrepancy) error {
	p.metrics.ReconciliationReports.WithLabelValues(string(d.Reason)).Inc()
	p.logger.Warn().
		Str("transaction_id", d.TransactionID.String()).
		Str("gateway_transaction_id", d.GatewayTransactionID).
		Str("gateway_status", string(d.GatewayStatus)).
		Str("local_status", string(d.LocalStatus)).
		Str("reason", string(d.Reason)).
		Int64("amount", d.AmountInCents).
		Str("currency", d.Currency).
		Str("detail", d.Detail).
		Msg("Transaction needs manual reconciliation")

	err := retry.Do(ctx, p.retryCfg, func() error {
		return p.producer.add(ctx, ReconciliationStream, discrepancyValues(d))
	})
	if err != nil {
		p.logger.Error().Err(err).
			Str("transaction_id", d.TransactionID.String()).
			Msg("Failed to publish reconciliation report")
		return fmt.Errorf("publish reconciliation report: %w", err)
	}
	return nil
}

func discrepancyValues(d checkout.Discrepancy) map[string]any {
	return map[string]any{
		"transaction_id":         d.TransactionID.String(),
		"gateway_transaction_id": d.GatewayTransactionID,
		"gateway_status":         string(d.GatewayStatus),
		"local_status":           string(d.LocalStatus),
		"reason":                 string(d.Reason),
		"detail":                 d.Detail,
		"amount":                 d.AmountInCents,
		"currency":               d.Currency,
		"occurred_at":            d.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// DecodeDiscrepancy reads a discrepancy back from a stream message.
func DecodeDiscrepancy(values map[string]any) (checkout.Discrepancy, error) {
	str := func(key string) string {
		s, _ := values[key].(string)
		return s
	}

	id, err := uuid.Parse(str("transaction_id"))
	if err != nil {
		return checkout.Discrepancy{}, fmt.Errorf("invalid transaction_id %q: %w", str("transaction_id"), err)
	}
	amount, err := strconv.ParseInt(str("amount"), 10, 64)
	if err != nil {
		return checkout.Discrepancy{}, fmt.Errorf("invalid amount %q: %w", str("amount"), err)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, str("occurred_at"))
	if err != nil {
		return checkout.Discrepancy{}, fmt.Errorf("invalid occurred_at %q: %w", str("occurred_at"), err)
	}

	return checkout.Discrepancy{
		TransactionID:        id,
		GatewayTransactionID: str("gateway_transaction_id"),
		GatewayStatus:        payment.GatewayStatus(str("gateway_status")),
		LocalStatus:          status.Name(str("local_status")),
		Reason:               checkout.Reason(str("reason")),
		Detail:               str("detail"),
		AmountInCents:        amount,
		Currency:             str("currency"),
		OccurredAt:           occurredAt,
	}, nil
}
