package transaction

import (
	"context"

	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/google/uuid"
)

// Repository defines the interface for order transaction persistence
type Repository interface {
	// Create inserts a new transaction
	Create(ctx context.Context, t *OrderTransaction) error

	// GetByID returns ErrTransactionNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*OrderTransaction, error)

	// UpdateIfPending writes the status, gateway transaction id and
	// timestamps only if the stored status is still PENDING. A lost race
	// returns ErrTransactionAlreadyFinished.
	UpdateIfPending(ctx context.Context, t *OrderTransaction) error

	// List lists transactions with filters
	List(ctx context.Context, filter ListFilter) ([]*OrderTransaction, error)
}

// ListFilter defines filters for listing transactions
type ListFilter struct {
	Status        *status.Name
	CustomerEmail string
	Limit         int
	Offset        int
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
