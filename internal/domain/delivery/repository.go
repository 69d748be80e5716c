package delivery

import "context"

// Repository defines the interface for delivery persistence
type Repository interface {
	// Save persists the delivery and returns it with ID and Fee assigned.
	Save(ctx context.Context, d *Delivery) (*Delivery, error)
}
