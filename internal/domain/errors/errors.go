package errors

import (
	"errors"
	"fmt"
)

var (
	// Checkout errors
	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrTransactionAlreadyFinished = errors.New("transaction already finished")
	ErrInvalidStateTransition     = errors.New("invalid state transition")

	// Catalog and reference data errors
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrStatusNotFound   = errors.New("status not found")

	// Collaborator errors
	ErrGateway     = errors.New("payment gateway error")
	ErrPersistence = errors.New("persistence error")

	// Lock errors
	ErrLockAcquisitionFailed = errors.New("failed to acquire lock")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
)

// DomainError wraps errors with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// Is lets errors.Is(err, ErrValidationFailed) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// GatewayError wraps a payment gateway failure. The cause stays reachable
// through errors.Is and errors.As.
func GatewayError(op string, cause error) error {
	return &DomainError{
		Code:    "gateway_error",
		Message: "payment gateway " + op + " failed",
		Err:     errors.Join(ErrGateway, cause),
	}
}

// PersistenceError wraps a storage failure.
func PersistenceError(op string, cause error) error {
	return &DomainError{
		Code:    "persistence_error",
		Message: op + " failed",
		Err:     errors.Join(ErrPersistence, cause),
	}
}
