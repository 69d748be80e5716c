package dto

// StartTransactionRequest is the body of POST /api/v1/transactions.
type StartTransactionRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	Customer  CustomerRequest `json:"customer" validate:"required"`
	Delivery  DeliveryRequest `json:"delivery" validate:"required"`
}

type CustomerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	LastName string `json:"last_name" validate:"required,max=100"`
	DNI      string `json:"dni" validate:"required,max=32"`
	Phone    string `json:"phone" validate:"required,max=32"`
	Email    string `json:"email" validate:"required,email"`
}

type DeliveryRequest struct {
	Address       string `json:"address" validate:"required,max=255"`
	Country       string `json:"country" validate:"required,max=64"`
	City          string `json:"city" validate:"required,max=64"`
	Region        string `json:"region" validate:"required,max=64"`
	PostalCode    string `json:"postal_code" validate:"required,max=16"`
	RecipientName string `json:"recipient_name" validate:"required,max=200"`
}

// FinishTransactionRequest is the body of POST /api/v1/transactions/{id}/finish.
// Card fields are only ever read into payment.Card and never echoed.
type FinishTransactionRequest struct {
	Card            CardRequest `json:"card" validate:"required"`
	Installments    int         `json:"installments" validate:"omitempty,gte=1,lte=36"`
	AcceptanceToken string      `json:"acceptance_token" validate:"required"`
}

type CardRequest struct {
	Number     string `json:"number" validate:"required,numeric,min=12,max=19"`
	CVC        string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	ExpMonth   int    `json:"exp_month" validate:"required,gte=1,lte=12"`
	ExpYear    int    `json:"exp_year" validate:"required"`
	HolderName string `json:"card_holder" validate:"required,max=100"`
}

// CreateProductRequest is the admin body for a new product.
type CreateProductRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

type AddStockRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}
