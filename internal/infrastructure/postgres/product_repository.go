package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, description, price, stock, image_url, created_at, updated_at`

// ProductRepository implements product.Repository using PostgreSQL.
type ProductRepository struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

// NewProductRepository creates a new ProductRepository. metrics may be nil.
func NewProductRepository(pool *pgxpool.Pool, metrics *observability.Metrics) *ProductRepository {
	return &ProductRepository{pool: pool, metrics: metrics}
}

func (r *ProductRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*product.Product, error) {
	p := &product.Product{}
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	return scanProduct(r.db(ctx).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// DecrementStockIfAvailable is a single conditional UPDATE, so two callers
// can never both take the last units.
func (r *ProductRepository) DecrementStockIfAvailable(ctx context.Context, id uuid.UUID, qty int) error {
	err := r.decrement(ctx, id, qty)
	if r.metrics != nil {
		r.metrics.StockDecrements.WithLabelValues(decrementResult(err)).Inc()
	}
	return err
}

func decrementResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domainErrors.ErrInsufficientStock):
		return "insufficient"
	case errors.Is(err, domainErrors.ErrProductNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (r *ProductRepository) decrement(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return domainErrors.NewValidationError("quantity", "must be at least 1")
	}
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW()
		 WHERE id = $1 AND stock >= $2`, id, qty,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return domainErrors.ErrProductNotFound
	}
	return fmt.Errorf("product %s: %w", id, domainErrors.ErrInsufficientStock)
}

func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, f product.ListFilter) ([]*product.Product, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE ($1::boolean = FALSE OR stock > 0)
		 ORDER BY name ASC, id ASC
		 LIMIT $2 OFFSET $3`,
		f.InStockOnly, limit, f.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) AddStock(ctx context.Context, id uuid.UUID, qty int) (*product.Product, error) {
	return scanProduct(r.db(ctx).QueryRow(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+productColumns, id, qty))
}
