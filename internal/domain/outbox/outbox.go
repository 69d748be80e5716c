package outbox

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
)

const (
	AggregateOrderTransaction = "order_transaction"

	EventTransactionCreated  = "transaction.created"
	EventTransactionFinished = "transaction.finished"
)

type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       map[string]any
	Status        Status
	RetryCount    int
	MaxRetries    int
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

func NewEntry(aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]any) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		RetryCount:    0,
		MaxRetries:    5,
		CreatedAt:     time.Now(),
	}
}

// ForTransaction builds an outbox entry describing t. Customer data is
// limited to the email.
func ForTransaction(eventType string, t *transaction.OrderTransaction) *Entry {
	payload := map[string]any{
		"transaction_id": t.ID.String(),
		"status":         string(t.Status.Name),
		"total":          t.Total,
		"currency":       t.Currency,
		"quantity":       t.Quantity,
		"product_id":     t.Product.ID.String(),
		"customer_email": t.Customer.Email,
	}
	if t.GatewayTransactionID != nil {
		payload["gateway_transaction_id"] = *t.GatewayTransactionID
	}
	return NewEntry(AggregateOrderTransaction, t.ID, eventType, payload)
}
