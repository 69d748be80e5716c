package checkout

import (
	"context"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/customer"
	"github.com/cassiomorais/checkout/internal/domain/delivery"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/cassiomorais/checkout/internal/application/checkout"

// Ports groups every collaborator the orchestrator calls.
type Ports struct {
	Products     product.Repository
	Customers    customer.Repository
	Deliveries   delivery.Repository
	Statuses     status.Registry
	Transactions transaction.Repository
	Gateway      PaymentGateway
	Outbox       OutboxWriter
	TxManager    TransactionManager
	Reconciler   ReconciliationReporter
}

// Orchestrator runs the two-phase checkout: StartTransaction reserves a
// PENDING transaction and FinishTransactionWithCard charges it.
//
// It holds no state between calls. Concurrent finishes of the same
// transaction are arbitrated by Transactions.UpdateIfPending and stock is
// consumed through Products.DecrementStockIfAvailable.
type Orchestrator struct {
	ports   Ports
	pricing transaction.Pricing
	tracer  trace.Tracer
	now     func() time.Time
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(ports Ports, pricing transaction.Pricing) *Orchestrator {
	return &Orchestrator{
		ports:   ports,
		pricing: pricing,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
	}
}

// MapGatewayStatus converts a gateway outcome to the local terminal status.
// Anything that is not a definite approval, decline or void is an error.
func MapGatewayStatus(s payment.GatewayStatus) status.Name {
	switch s {
	case payment.GatewayApproved:
		return status.Approved
	case payment.GatewayDeclined:
		return status.Declined
	case payment.GatewayVoided:
		return status.Voided
	default:
		return status.Error
	}
}

// passOrPersistence keeps classified errors as they are and marks anything
// else as a storage failure.
func passOrPersistence(op string, err error) error {
	if domainErrors.KindOf(err) != domainErrors.KindInternal {
		return err
	}
	return domainErrors.PersistenceError(op, err)
}

func passOrGateway(op string, err error) error {
	if domainErrors.KindOf(err) != domainErrors.KindInternal {
		return err
	}
	return domainErrors.GatewayError(op, err)
}

func (o *Orchestrator) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, domainErrors.KindOf(err).String())
	return err
}

// report hands a discrepancy to the reconciler. A failed report is kept on
// the span; the reporter adapter logs and retries on its own.
func (o *Orchestrator) report(ctx context.Context, span trace.Span, t *transaction.OrderTransaction, res payment.ChargeResult, reason Reason, detail string) {
	local := t.Status.Name
	if reason == ReasonLostFinishRace {
		// t holds this caller's outcome, which was never stored.
		local = o.storedStatus(ctx, t)
	}
	d := Discrepancy{
		TransactionID:        t.ID,
		GatewayTransactionID: res.TransactionID,
		GatewayStatus:        res.Status,
		LocalStatus:          local,
		Reason:               reason,
		Detail:               detail,
		AmountInCents:        t.Total,
		Currency:             t.Currency,
		OccurredAt:           o.now(),
	}
	span.AddEvent("reconciliation.report", trace.WithAttributes(reasonAttr(reason)))
	if err := o.ports.Reconciler.Report(ctx, d); err != nil {
		span.RecordError(err)
	}
}

// storedStatus reloads the persisted status of t, or "" when it cannot be read.
func (o *Orchestrator) storedStatus(ctx context.Context, t *transaction.OrderTransaction) status.Name {
	stored, err := o.ports.Transactions.GetByID(ctx, t.ID)
	if err != nil || stored == nil {
		return ""
	}
	return stored.Status.Name
}

func reasonAttr(r Reason) attribute.KeyValue {
	return attribute.String("reconciliation.reason", string(r))
}

func transactionAttr(t *transaction.OrderTransaction) attribute.KeyValue {
	return attribute.String("transaction.id", t.ID.String())
}
