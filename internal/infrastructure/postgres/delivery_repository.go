package postgres

import (
	"context"
	"fmt"

	"github.com/cassiomorais/checkout/internal/domain/delivery"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryRepository implements delivery.Repository using PostgreSQL. The
// shipping fee is priced by the configured policy at save time.
type DeliveryRepository struct {
	pool   *pgxpool.Pool
	policy delivery.FeePolicy
}

func NewDeliveryRepository(pool *pgxpool.Pool, policy delivery.FeePolicy) *DeliveryRepository {
	return &DeliveryRepository{pool: pool, policy: policy}
}

func (r *DeliveryRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *DeliveryRepository) Save(ctx context.Context, d *delivery.Delivery) (*delivery.Delivery, error) {
	saved := *d
	saved.ID = uuid.New()
	saved.Fee = r.policy.FeeFor(&saved)

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO deliveries (id, address, country, city, region, postal_code, recipient_name, fee)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		saved.ID, saved.Address, saved.Country, saved.City, saved.Region,
		saved.PostalCode, saved.RecipientName, saved.Fee,
	)
	if err != nil {
		return nil, fmt.Errorf("insert delivery: %w", err)
	}
	return &saved, nil
}
