package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/customer"
	"github.com/cassiomorais/checkout/internal/domain/delivery"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CustomerInput holds the buyer details of a checkout.
type CustomerInput struct {
	Name     string
	LastName string
	DNI      string
	Phone    string
	Email    string
}

// DeliveryInput holds the shipping details of a checkout.
type DeliveryInput struct {
	Address       string
	Country       string
	City          string
	Region        string
	PostalCode    string
	RecipientName string
}

// StartTransactionRequest holds the input for starting a checkout.
type StartTransactionRequest struct {
	ProductID uuid.UUID
	Quantity  int
	Customer  CustomerInput
	Delivery  DeliveryInput
}

// StartTransaction validates the request, checks stock and persists a
// PENDING transaction together with its customer and delivery. Stock is
// not reserved here.
func (o *Orchestrator) StartTransaction(ctx context.Context, req StartTransactionRequest) (*transaction.OrderTransaction, error) {
	ctx, span := o.tracer.Start(ctx, "checkout.StartTransaction", trace.WithAttributes(
		attribute.String("product.id", req.ProductID.String()),
		attribute.Int("quantity", req.Quantity),
	))
	defer span.End()

	// 1. Validate input shape before touching any collaborator.
	if req.Quantity < 1 {
		return nil, o.fail(span, domainErrors.NewValidationError("quantity", "must be at least 1"))
	}
	buyer, err := customer.New(req.Customer.Name, req.Customer.LastName, req.Customer.DNI, req.Customer.Phone, req.Customer.Email)
	if err != nil {
		return nil, o.fail(span, err)
	}
	shipping := &delivery.Delivery{
		Address:       req.Delivery.Address,
		Country:       req.Delivery.Country,
		City:          req.Delivery.City,
		Region:        req.Delivery.Region,
		PostalCode:    req.Delivery.PostalCode,
		RecipientName: req.Delivery.RecipientName,
	}
	if err := shipping.Validate(); err != nil {
		return nil, o.fail(span, err)
	}

	// 2. Optimistic stock check. Nothing has been written yet.
	p, err := o.ports.Products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, o.fail(span, passOrPersistence("load product", err))
	}
	if !p.HasStock(req.Quantity) {
		return nil, o.fail(span, fmt.Errorf("product %s has %d units, %d requested: %w",
			p.ID, p.Stock, req.Quantity, domainErrors.ErrInsufficientStock))
	}

	// 3. Customer upsert, delivery insert and transaction insert commit together.
	var created *transaction.OrderTransaction
	err = o.ports.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		c, err := o.resolveCustomer(txCtx, buyer)
		if err != nil {
			return err
		}

		d, err := o.ports.Deliveries.Save(txCtx, shipping)
		if err != nil {
			return passOrPersistence("save delivery", err)
		}

		pending, err := o.ports.Statuses.FindByName(txCtx, status.Pending)
		if err != nil {
			return passOrPersistence("resolve pending status", err)
		}

		t, err := transaction.New(req.Quantity, *p, *d, *c, pending, o.pricing)
		if err != nil {
			return err
		}
		if err := o.ports.Transactions.Create(txCtx, t); err != nil {
			return passOrPersistence("create transaction", err)
		}
		if err := o.ports.Outbox.Insert(txCtx, outbox.ForTransaction(outbox.EventTransactionCreated, t)); err != nil {
			return passOrPersistence("write outbox entry", err)
		}

		created = t
		return nil
	})
	if err != nil {
		return nil, o.fail(span, passOrPersistence("start transaction", err))
	}

	span.SetAttributes(transactionAttr(created))
	return created, nil
}

// resolveCustomer reuses the stored customer for the email or saves a new one.
func (o *Orchestrator) resolveCustomer(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	exists, err := o.ports.Customers.ExistsByEmail(ctx, c.Email)
	if err != nil {
		return nil, passOrPersistence("check customer", err)
	}
	if exists {
		stored, err := o.ports.Customers.GetByEmail(ctx, c.Email)
		if err == nil {
			return stored, nil
		}
		// Removed between the two reads; fall through and save.
		if !errors.Is(err, domainErrors.ErrCustomerNotFound) {
			return nil, passOrPersistence("load customer", err)
		}
	}

	saved, err := o.ports.Customers.Save(ctx, c)
	if err != nil {
		return nil, passOrPersistence("save customer", err)
	}
	return saved, nil
}
