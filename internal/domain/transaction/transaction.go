package transaction

import (
	"math"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/customer"
	"github.com/cassiomorais/checkout/internal/domain/delivery"
	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/google/uuid"
)

// OrderTransaction is the checkout aggregate: one product line with its
// customer, delivery and payment outcome.
type OrderTransaction struct {
	ID                   uuid.UUID
	GatewayTransactionID *string
	Quantity             int
	Product              product.Product
	Delivery             delivery.Delivery
	Customer             customer.Customer
	Total                int64
	Currency             string
	Status               status.Status
	CreatedAt            time.Time
	UpdatedAt            time.Time
	FinishedAt           *time.Time
}

// Pricing holds the inputs needed to compute a total.
type Pricing struct {
	Currency           string
	TaxRateBasisPoints int64
}

// New builds a PENDING transaction. Total is computed here and never again.
func New(
	quantity int,
	p product.Product,
	d delivery.Delivery,
	c customer.Customer,
	pending status.Status,
	pricing Pricing,
) (*OrderTransaction, error) {
	if quantity < 1 {
		return nil, errors.NewValidationError("quantity", "must be at least 1")
	}
	if pending.Name != status.Pending {
		return nil, errors.NewDomainError(
			"invalid_initial_status",
			"transaction must start as "+string(status.Pending)+", got "+string(pending.Name),
			errors.ErrInvalidStateTransition,
		)
	}
	if len(pricing.Currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	total, err := ComputeTotal(p.Price, quantity, d.Fee, pricing.TaxRateBasisPoints)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &OrderTransaction{
		ID:        uuid.New(),
		Quantity:  quantity,
		Product:   p,
		Delivery:  d,
		Customer:  c,
		Total:     total,
		Currency:  pricing.Currency,
		Status:    pending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ComputeTotal returns quantity*price + fee plus tax on the product subtotal.
// Tax is given in basis points and truncated to the minor unit. A total that
// does not fit in an int64 is a validation error.
func ComputeTotal(price int64, quantity int, fee int64, taxRateBasisPoints int64) (int64, error) {
	if price < 0 || fee < 0 || taxRateBasisPoints < 0 {
		return 0, errors.NewValidationError("total", "price, fee and tax rate must not be negative")
	}
	tooLarge := errors.NewValidationError("quantity", "order total exceeds the largest chargeable amount")

	qty := int64(quantity)
	if qty > 0 && price > math.MaxInt64/qty {
		return 0, tooLarge
	}
	subtotal := price * qty

	// subtotal*rate/10000 split so the intermediate product cannot overflow.
	whole, rest := subtotal/10000, subtotal%10000
	if taxRateBasisPoints > math.MaxInt64/10000 ||
		(taxRateBasisPoints > 0 && whole > math.MaxInt64/taxRateBasisPoints) {
		return 0, tooLarge
	}
	tax := whole*taxRateBasisPoints + rest*taxRateBasisPoints/10000

	if fee > math.MaxInt64-subtotal || tax > math.MaxInt64-subtotal-fee {
		return 0, tooLarge
	}
	return subtotal + fee + tax, nil
}

var transitions = map[status.Name][]status.Name{
	status.Pending: {
		status.Approved,
		status.Declined,
		status.Voided,
		status.Error,
	},
	status.Approved: {},
	status.Declined: {},
	status.Voided:   {},
	status.Error:    {},
}

// CanTransitionTo checks if the transaction can move to the given status
func (t *OrderTransaction) CanTransitionTo(next status.Name) bool {
	allowed, exists := transitions[t.Status.Name]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the transaction to a terminal status
func (t *OrderTransaction) TransitionTo(next status.Status) error {
	if !t.CanTransitionTo(next.Name) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status.Name)+" to "+string(next.Name),
			errors.ErrInvalidStateTransition,
		)
	}

	now := time.Now()
	t.Status = next
	t.UpdatedAt = now
	if next.Name.IsTerminal() {
		t.FinishedAt = &now
	}
	return nil
}

// Finish records the gateway outcome and moves to the mapped status.
func (t *OrderTransaction) Finish(gatewayTransactionID string, next status.Status) error {
	if err := t.TransitionTo(next); err != nil {
		return err
	}
	if gatewayTransactionID != "" {
		t.GatewayTransactionID = &gatewayTransactionID
	}
	return nil
}

func (t *OrderTransaction) IsPending() bool {
	return t.Status.Name == status.Pending
}

func (t *OrderTransaction) IsTerminal() bool {
	return t.Status.Name.IsTerminal()
}
