package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/customer"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionSelect = `SELECT
	t.id, t.quantity, t.total, t.currency, t.gateway_transaction_id, t.created_at, t.updated_at, t.finished_at,
	p.id, p.name, p.description, p.price, p.stock, p.image_url, p.created_at, p.updated_at,
	c.id, c.name, c.last_name, c.dni, c.phone, c.email,
	d.id, d.address, d.country, d.city, d.region, d.postal_code, d.recipient_name, d.fee,
	s.id, s.name
FROM order_transactions t
JOIN products p ON p.id = t.product_id
JOIN customers c ON c.id = t.customer_id
JOIN deliveries d ON d.id = t.delivery_id
JOIN statuses s ON s.id = t.status_id`

// TransactionRepository implements transaction.Repository using PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func scanTransaction(s scanner) (*transaction.OrderTransaction, error) {
	t := &transaction.OrderTransaction{}
	var statusName string
	err := s.Scan(
		&t.ID, &t.Quantity, &t.Total, &t.Currency, &t.GatewayTransactionID, &t.CreatedAt, &t.UpdatedAt, &t.FinishedAt,
		&t.Product.ID, &t.Product.Name, &t.Product.Description, &t.Product.Price, &t.Product.Stock,
		&t.Product.ImageURL, &t.Product.CreatedAt, &t.Product.UpdatedAt,
		&t.Customer.ID, &t.Customer.Name, &t.Customer.LastName, &t.Customer.DNI, &t.Customer.Phone, &t.Customer.Email,
		&t.Delivery.ID, &t.Delivery.Address, &t.Delivery.Country, &t.Delivery.City, &t.Delivery.Region,
		&t.Delivery.PostalCode, &t.Delivery.RecipientName, &t.Delivery.Fee,
		&t.Status.ID, &statusName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.Status.Name = status.Name(statusName)
	return t, nil
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.OrderTransaction) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO order_transactions
		 (id, product_id, customer_id, delivery_id, status_id, quantity, total, currency,
		  gateway_transaction_id, created_at, updated_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.Product.ID, t.Customer.ID, t.Delivery.ID, t.Status.ID, t.Quantity, t.Total, t.Currency,
		t.GatewayTransactionID, t.CreatedAt, t.UpdatedAt, t.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.OrderTransaction, error) {
	return scanTransaction(r.db(ctx).QueryRow(ctx, transactionSelect+` WHERE t.id = $1`, id))
}

// UpdateIfPending is the compare-and-set that decides which finish wins.
func (r *TransactionRepository) UpdateIfPending(ctx context.Context, t *transaction.OrderTransaction) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE order_transactions
		 SET status_id = $1, gateway_transaction_id = $2, updated_at = $3, finished_at = $4
		 WHERE id = $5
		   AND status_id = (SELECT id FROM statuses WHERE name = $6)`,
		t.Status.ID, t.GatewayTransactionID, t.UpdatedAt, t.FinishedAt, t.ID, string(status.Pending),
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM order_transactions WHERE id = $1)`, t.ID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check transaction: %w", err)
	}
	if !exists {
		return domainErrors.ErrTransactionNotFound
	}
	return fmt.Errorf("transaction %s: %w", t.ID, domainErrors.ErrTransactionAlreadyFinished)
}

func (r *TransactionRepository) List(ctx context.Context, f transaction.ListFilter) ([]*transaction.OrderTransaction, error) {
	query, args := buildListQuery(f)
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var list []*transaction.OrderTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func buildListQuery(f transaction.ListFilter) (string, []any) {
	query := transactionSelect + ` WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != nil {
		query += fmt.Sprintf(" AND s.name = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.CustomerEmail != "" {
		query += fmt.Sprintf(" AND c.email = $%d", argIdx)
		args = append(args, customer.NormalizeEmail(f.CustomerEmail))
		argIdx++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)
	return query, args
}
