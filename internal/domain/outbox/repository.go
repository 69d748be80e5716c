package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Insert stores an entry. Callers run it in the same storage
	// transaction as the aggregate write it describes.
	Insert(ctx context.Context, entry *Entry) error

	// GetPending returns the oldest pending entries, locking them against
	// other relays until the surrounding transaction ends.
	GetPending(ctx context.Context, limit int) ([]*Entry, error)

	MarkPublished(ctx context.Context, id uuid.UUID) error

	// MarkFailed increments the retry count; the entry becomes failed once
	// it reaches MaxRetries.
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// DeletePublishedBefore purges relayed entries older than the cutoff.
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
