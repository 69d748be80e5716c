package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusRepository resolves the seeded status rows. Wrap it in
// status.NewCachedRegistry; the rows never change at runtime.
type StatusRepository struct {
	pool *pgxpool.Pool
}

func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{pool: pool}
}

func (r *StatusRepository) FindByName(ctx context.Context, name status.Name) (status.Status, error) {
	var (
		s   status.Status
		raw string
	)
	err := ConnFromCtx(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name FROM statuses WHERE name = $1`, string(name),
	).Scan(&s.ID, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return status.Status{}, fmt.Errorf("status %s: %w", name, domainErrors.ErrStatusNotFound)
		}
		return status.Status{}, fmt.Errorf("find status: %w", err)
	}
	s.Name = status.Name(raw)
	return s, nil
}
