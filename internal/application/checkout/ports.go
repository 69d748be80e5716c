package checkout

import (
	"context"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/google/uuid"
)

// TransactionManager defines the interface for transaction management.
// This is an application-layer port, not a domain concern.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxWriter defines the interface for writing to the transactional outbox.
type OutboxWriter interface {
	Insert(ctx context.Context, entry *outbox.Entry) error
}

// PaymentGateway is the external processor that tokenizes cards and
// charges them. Implementations must not retry a charge.
type PaymentGateway interface {
	AcceptanceTerms(ctx context.Context) ([]payment.Acceptance, error)
	TokenizeCard(ctx context.Context, card payment.Card) (payment.CardToken, error)
	Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)
}

// ReconciliationReporter records situations where the gateway and the
// local store disagree and a person has to settle them.
type ReconciliationReporter interface {
	Report(ctx context.Context, d Discrepancy) error
}

// Reason names why a discrepancy was raised
type Reason string

const (
	// The charge was approved but the catalog could not give up the stock.
	ReasonStockDecrementFailed Reason = "stock_decrement_failed"
	// Another finish won the compare-and-set after this one charged.
	ReasonLostFinishRace Reason = "lost_finish_race"
	// The charge happened but the outcome could not be stored.
	ReasonPersistFailedAfterCharge Reason = "persist_failed_after_charge"
	// The gateway had not settled the charge when we stopped waiting.
	ReasonUnsettledGatewayStatus Reason = "unsettled_gateway_status"
)

// Discrepancy describes one charge that needs manual reconciliation.
type Discrepancy struct {
	TransactionID        uuid.UUID
	GatewayTransactionID string
	GatewayStatus        payment.GatewayStatus
	LocalStatus          status.Name
	Reason               Reason
	Detail               string
	AmountInCents        int64
	Currency             string
	OccurredAt           time.Time
}
