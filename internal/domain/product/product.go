package product

import (
	"context"
	"strings"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// Product is a catalog item. Price is expressed in the minor currency unit.
type Product struct {
	ID          uuid.UUID
	Name        string
	Description string
	Price       int64
	Stock       int
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct creates a new catalog product
func NewProduct(name, description string, price int64, stock int, imageURL string) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewValidationError("name", "cannot be empty")
	}
	if price < 0 {
		return nil, errors.NewValidationError("price", "cannot be negative")
	}
	if stock < 0 {
		return nil, errors.NewValidationError("stock", "cannot be negative")
	}

	now := time.Now()
	return &Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: description,
		Price:       price,
		Stock:       stock,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// HasStock reports whether qty units can currently be sold.
func (p *Product) HasStock(qty int) bool {
	return qty > 0 && p.Stock >= qty
}

// Repository is the catalog port.
type Repository interface {
	// GetByID returns ErrProductNotFound when the product does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// DecrementStockIfAvailable subtracts qty in a single atomic step and
	// returns ErrInsufficientStock if fewer than qty units remain.
	DecrementStockIfAvailable(ctx context.Context, id uuid.UUID, qty int) error

	Create(ctx context.Context, p *Product) error
	List(ctx context.Context, filter ListFilter) ([]*Product, error)
	AddStock(ctx context.Context, id uuid.UUID, qty int) (*Product, error)
}

// ListFilter defines paging for catalog listings
type ListFilter struct {
	InStockOnly bool
	Limit       int
	Offset      int
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// WithDefaults returns f with an out-of-range limit replaced by
// DefaultListLimit and a negative offset reset to zero.
func (f ListFilter) WithDefaults() ListFilter {
	if f.Limit <= 0 || f.Limit > MaxListLimit {
		f.Limit = DefaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
