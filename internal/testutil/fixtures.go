package testutil

import (
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/domain/customer"
	"github.com/cassiomorais/checkout/internal/domain/delivery"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
)

// ApprovedCardNumber is a Luhn-valid test number.
const ApprovedCardNumber = "4242424242424242"

func NewTestProduct(price int64, stock int) *product.Product {
	now := time.Now()
	return &product.Product{
		ID:          uuid.New(),
		Name:        "Mechanical Keyboard",
		Description: "75% layout, hot-swappable",
		Price:       price,
		Stock:       stock,
		ImageURL:    "https://cdn.example.com/keyboard.png",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewTestCustomerInput(email string) checkout.CustomerInput {
	return checkout.CustomerInput{
		Name:     "Ana",
		LastName: "Ruiz",
		DNI:      "1020304050",
		Phone:    "3001234567",
		Email:    email,
	}
}

func NewTestDeliveryInput() checkout.DeliveryInput {
	return checkout.DeliveryInput{
		Address:       "Calle 10 # 43-12",
		Country:       "CO",
		City:          "Medellin",
		Region:        "Antioquia",
		PostalCode:    "050021",
		RecipientName: "Ana Ruiz",
	}
}

// NewTestTransaction builds a stored-looking transaction in the given status.
func NewTestTransaction(p *product.Product, quantity int, fee int64, name status.Name) *transaction.OrderTransaction {
	total, err := transaction.ComputeTotal(p.Price, quantity, fee, 0)
	if err != nil {
		panic(err)
	}
	now := time.Now()
	t := &transaction.OrderTransaction{
		ID:        uuid.New(),
		Quantity:  quantity,
		Product:   *p,
		Delivery:  delivery.Delivery{ID: uuid.New(), Fee: fee, City: "Medellin", Region: "Antioquia"},
		Customer:  customer.Customer{ID: uuid.New(), Name: "Ana", LastName: "Ruiz", Email: "ana@example.com"},
		Total:     total,
		Currency:  "COP",
		Status:    StatusOf(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name.IsTerminal() {
		gatewayID := "gw_" + t.ID.String()
		t.GatewayTransactionID = &gatewayID
		t.FinishedAt = &now
	}
	return t
}

// StatusOf returns the status record the mock registry would resolve.
func StatusOf(name status.Name) status.Status {
	for i, n := range status.Names {
		if n == name {
			return status.Status{ID: i + 1, Name: n}
		}
	}
	return status.Status{Name: name}
}

// NewTestCard returns a valid card that expires next year.
func NewTestCard(t testing.TB) payment.Card {
	t.Helper()
	card, err := payment.NewCard(ApprovedCardNumber, "123", 12, time.Now().Year()+1, "ANA RUIZ")
	if err != nil {
		t.Fatalf("build test card: %v", err)
	}
	return card
}
