package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/customer"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository implements customer.Repository using PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func scanCustomer(s scanner) (*customer.Customer, error) {
	c := &customer.Customer{}
	if err := s.Scan(&c.ID, &c.Name, &c.LastName, &c.DNI, &c.Phone, &c.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	return c, nil
}

func (r *CustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE email = $1)`, customer.NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer email: %w", err)
	}
	return exists, nil
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	return scanCustomer(r.db(ctx).QueryRow(ctx,
		`SELECT id, name, last_name, dni, phone, email FROM customers WHERE email = $1`,
		customer.NormalizeEmail(email)))
}

// Save inserts the customer. The no-op update on conflict makes RETURNING
// yield the existing row when another request stored the email first.
func (r *CustomerRepository) Save(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return scanCustomer(r.db(ctx).QueryRow(ctx,
		`INSERT INTO customers (id, name, last_name, dni, phone, email)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, name, last_name, dni, phone, email`,
		id, c.Name, c.LastName, c.DNI, c.Phone, customer.NormalizeEmail(c.Email)))
}
