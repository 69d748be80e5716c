package customer

import (
	"context"
	"net/mail"
	"strings"

	"github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/google/uuid"
)

// Customer is the buyer of an order transaction. Email is unique.
type Customer struct {
	ID       uuid.UUID
	Name     string
	LastName string
	DNI      string
	Phone    string
	Email    string
}

// New validates the customer details. The ID is assigned on save.
func New(name, lastName, dni, phone, email string) (*Customer, error) {
	c := &Customer{
		Name:     strings.TrimSpace(name),
		LastName: strings.TrimSpace(lastName),
		DNI:      strings.TrimSpace(dni),
		Phone:    strings.TrimSpace(phone),
		Email:    NormalizeEmail(email),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Customer) Validate() error {
	if c.Name == "" {
		return errors.NewValidationError("customer.name", "cannot be empty")
	}
	if c.LastName == "" {
		return errors.NewValidationError("customer.last_name", "cannot be empty")
	}
	if c.DNI == "" {
		return errors.NewValidationError("customer.dni", "cannot be empty")
	}
	if c.Email == "" {
		return errors.NewValidationError("customer.email", "cannot be empty")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return errors.NewValidationError("customer.email", "must be a valid email address")
	}
	return nil
}

// NormalizeEmail lower-cases and trims an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Repository is the customer port.
type Repository interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// GetByEmail returns ErrCustomerNotFound when no customer has the email.
	GetByEmail(ctx context.Context, email string) (*Customer, error)

	// Save assigns an ID and persists the customer. Saving an email that
	// already exists returns the stored customer.
	Save(ctx context.Context, c *Customer) (*Customer, error)
}
