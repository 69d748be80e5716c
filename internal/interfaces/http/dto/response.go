package dto

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
)

// Amounts are integers in the minor currency unit.

type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func FromProduct(p *product.Product) *ProductResponse {
	return &ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromProducts(list []*product.Product) []*ProductResponse {
	out := make([]*ProductResponse, 0, len(list))
	for _, p := range list {
		out = append(out, FromProduct(p))
	}
	return out
}

type CustomerResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	LastName string    `json:"last_name"`
	Email    string    `json:"email"`
}

type DeliveryResponse struct {
	ID            uuid.UUID `json:"id"`
	Address       string    `json:"address"`
	Country       string    `json:"country"`
	City          string    `json:"city"`
	Region        string    `json:"region"`
	PostalCode    string    `json:"postal_code"`
	RecipientName string    `json:"recipient_name"`
	Fee           int64     `json:"fee"`
}

type TransactionResponse struct {
	ID                   uuid.UUID        `json:"id"`
	Status               string           `json:"status"`
	GatewayTransactionID *string          `json:"gateway_transaction_id,omitempty"`
	Quantity             int              `json:"quantity"`
	Total                int64            `json:"total"`
	Currency             string           `json:"currency"`
	Product              ProductResponse  `json:"product"`
	Customer             CustomerResponse `json:"customer"`
	Delivery             DeliveryResponse `json:"delivery"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	FinishedAt           *time.Time       `json:"finished_at,omitempty"`
}

func FromTransaction(t *transaction.OrderTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                   t.ID,
		Status:               string(t.Status.Name),
		GatewayTransactionID: t.GatewayTransactionID,
		Quantity:             t.Quantity,
		Total:                t.Total,
		Currency:             t.Currency,
		Product:              *FromProduct(&t.Product),
		Customer: CustomerResponse{
			ID:       t.Customer.ID,
			Name:     t.Customer.Name,
			LastName: t.Customer.LastName,
			Email:    t.Customer.Email,
		},
		Delivery: DeliveryResponse{
			ID:            t.Delivery.ID,
			Address:       t.Delivery.Address,
			Country:       t.Delivery.Country,
			City:          t.Delivery.City,
			Region:        t.Delivery.Region,
			PostalCode:    t.Delivery.PostalCode,
			RecipientName: t.Delivery.RecipientName,
			Fee:           t.Delivery.Fee,
		},
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		FinishedAt: t.FinishedAt,
	}
}

func FromTransactions(list []*transaction.OrderTransaction) []*TransactionResponse {
	out := make([]*TransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, FromTransaction(t))
	}
	return out
}

type AcceptanceResponse struct {
	Type            string `json:"type"`
	AcceptanceToken string `json:"acceptance_token"`
	Permalink       string `json:"permalink"`
}

func FromAcceptances(terms []payment.Acceptance) []AcceptanceResponse {
	out := make([]AcceptanceResponse, 0, len(terms))
	for _, a := range terms {
		out = append(out, AcceptanceResponse{Type: a.Type, AcceptanceToken: a.AcceptanceToken, Permalink: a.Permalink})
	}
	return out
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}
