package checkout

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FinishTransactionRequest holds the input for paying a PENDING transaction.
type FinishTransactionRequest struct {
	TransactionID   uuid.UUID
	Card            payment.Card
	Installments    int
	AcceptanceToken string
}

// FinishTransactionWithCard charges the card for a PENDING transaction and
// records the outcome. The call is not idempotent: a transaction that has
// left PENDING is rejected with ErrTransactionAlreadyFinished before the
// gateway is contacted.
//
// The terminal status is written with a compare-and-set before stock is
// touched, so of two concurrent finishes only the winner consumes stock.
// The loser has already been charged at that point and is reported for
// reconciliation; charges are never reversed automatically.
func (o *Orchestrator) FinishTransactionWithCard(ctx context.Context, req FinishTransactionRequest) (*transaction.OrderTransaction, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.FinishTransactionWithCard", trace.WithAttributes(
		attribute.String("transaction.id", req.TransactionID.String()),
	))
	defer span.End()

	if req.Card.IsZero() {
		return nil, o.fail(span, domainErrors.NewValidationError("card", "is required"))
	}

	// 1. Load the aggregate.
	t, err := o.ports.Transactions.GetByID(ctx, req.TransactionID)
	if err != nil {
		return nil, o.fail(span, passOrPersistence("load transaction", err))
	}

	// 2. Only PENDING transactions can be charged.
	if !t.IsPending() {
		return nil, o.fail(span, fmt.Errorf("transaction %s is %s: %w",
			t.ID, t.Status.Name, domainErrors.ErrTransactionAlreadyFinished))
	}

	// 3. Stock may have been sold to someone else since start.
	p, err := o.ports.Products.GetByID(ctx, t.Product.ID)
	if err != nil {
		return nil, o.fail(span, passOrPersistence("load product", err))
	}
	if !p.HasStock(t.Quantity) {
		if err := o.finishWithoutCharge(ctx, t); err != nil {
			return nil, o.fail(span, err)
		}
		return nil, o.fail(span, fmt.Errorf("product %s has %d units, %d requested: %w",
			p.ID, p.Stock, t.Quantity, domainErrors.ErrInsufficientStock))
	}

	// 4. Tokenize. Failure leaves the transaction PENDING and retryable.
	token, err := o.ports.Gateway.TokenizeCard(ctx, req.Card)
	if err != nil {
		return nil, o.fail(span, domainErrors.GatewayError("tokenize", err))
	}

	// 5. Charge exactly once.
	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	result, err := o.ports.Gateway.Charge(ctx, payment.ChargeRequest{
		Reference:       t.ID.String(),
		AmountInCents:   t.Total,
		Currency:        t.Currency,
		CustomerEmail:   t.Customer.Email,
		Token:           token,
		Installments:    installments,
		AcceptanceToken: req.AcceptanceToken,
	})
	if err != nil {
		return nil, o.fail(span, domainErrors.GatewayError("charge", err))
	}
	span.SetAttributes(
		attribute.String("gateway.transaction_id", result.TransactionID),
		attribute.String("gateway.status", string(result.Status)),
	)

	// 6. Map the gateway outcome to a terminal local status.
	mapped := MapGatewayStatus(result.Status)
	next, err := o.ports.Statuses.FindByName(ctx, mapped)
	if err != nil {
		err = passOrPersistence("resolve "+string(mapped)+" status", err)
		o.report(ctx, span, t, result, ReasonPersistFailedAfterCharge, err.Error())
		return nil, o.fail(span, err)
	}
	if err := t.Finish(result.TransactionID, next); err != nil {
		return nil, o.fail(span, err)
	}

	// 7. Compare-and-set on PENDING. From here on the charge exists.
	if err := o.persistFinished(ctx, t); err != nil {
		if errors.Is(err, domainErrors.ErrTransactionAlreadyFinished) {
			o.report(ctx, span, t, result, ReasonLostFinishRace, err.Error())
			return nil, o.fail(span, err)
		}
		o.report(ctx, span, t, result, ReasonPersistFailedAfterCharge, err.Error())
		return nil, o.fail(span, err)
	}
	if mapped == status.Error && result.Status != payment.GatewayError {
		o.report(ctx, span, t, result, ReasonUnsettledGatewayStatus,
			"gateway reported "+string(result.Status))
	}

	// 8. Single point of stock consumption.
	if mapped == status.Approved {
		if err := o.ports.Products.DecrementStockIfAvailable(ctx, t.Product.ID, t.Quantity); err != nil {
			o.report(ctx, span, t, result, ReasonStockDecrementFailed, err.Error())
		}
	}

	return t, nil
}

// finishWithoutCharge moves a transaction to ERROR when it can no longer be
// fulfilled. No gateway call has happened.
func (o *Orchestrator) finishWithoutCharge(ctx context.Context, t *transaction.OrderTransaction) error {
	failed, err := o.ports.Statuses.FindByName(ctx, status.Error)
	if err != nil {
		return passOrPersistence("resolve error status", err)
	}
	if err := t.Finish("", failed); err != nil {
		return err
	}
	return o.persistFinished(ctx, t)
}

// persistFinished writes the terminal state and its outbox entry atomically.
func (o *Orchestrator) persistFinished(ctx context.Context, t *transaction.OrderTransaction) error {
	err := o.ports.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := o.ports.Transactions.UpdateIfPending(txCtx, t); err != nil {
			return passOrPersistence("update transaction", err)
		}
		if err := o.ports.Outbox.Insert(txCtx, outbox.ForTransaction(outbox.EventTransactionFinished, t)); err != nil {
			return passOrPersistence("write outbox entry", err)
		}
		return nil
	})
	if err != nil {
		return passOrPersistence("finish transaction", err)
	}
	return nil
}
