package catalog

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/google/uuid"
)

// CreateProductInput is the admin payload for a new catalog item.
type CreateProductInput struct {
	Name        string
	Description string
	Price       int64
	Stock       int
	ImageURL    string
}

// CreateProductUseCase adds a product to the catalog.
type CreateProductUseCase struct {
	products product.Repository
}

func NewCreateProductUseCase(products product.Repository) *CreateProductUseCase {
	return &CreateProductUseCase{products: products}
}

func (uc *CreateProductUseCase) Execute(ctx context.Context, in CreateProductInput) (*product.Product, error) {
	p, err := product.NewProduct(in.Name, in.Description, in.Price, in.Stock, in.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := uc.products.Create(ctx, p); err != nil {
		return nil, passOrPersistence("create product", err)
	}
	return p, nil
}

type GetProductUseCase struct {
	products product.Repository
}

func NewGetProductUseCase(products product.Repository) *GetProductUseCase {
	return &GetProductUseCase{products: products}
}

func (uc *GetProductUseCase) Execute(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	p, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, passOrPersistence("load product", err)
	}
	return p, nil
}

type ListProductsUseCase struct {
	products product.Repository
}

func NewListProductsUseCase(products product.Repository) *ListProductsUseCase {
	return &ListProductsUseCase{products: products}
}

func (uc *ListProductsUseCase) Execute(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	filter = filter.WithDefaults()
	list, err := uc.products.List(ctx, filter)
	if err != nil {
		return nil, passOrPersistence("list products", err)
	}
	return list, nil
}

// AddStockUseCase restocks a product. It only ever adds units; sales go
// through the checkout decrement.
type AddStockUseCase struct {
	products product.Repository
}

func NewAddStockUseCase(products product.Repository) *AddStockUseCase {
	return &AddStockUseCase{products: products}
}

func (uc *AddStockUseCase) Execute(ctx context.Context, id uuid.UUID, qty int) (*product.Product, error) {
	if qty <= 0 {
		return nil, domainErrors.NewValidationError("quantity", "must be positive")
	}
	p, err := uc.products.AddStock(ctx, id, qty)
	if err != nil {
		return nil, passOrPersistence(fmt.Sprintf("add stock to %s", id), err)
	}
	return p, nil
}

func passOrPersistence(op string, err error) error {
	if domainErrors.KindOf(err) != domainErrors.KindInternal {
		return err
	}
	return domainErrors.PersistenceError(op, err)
}
