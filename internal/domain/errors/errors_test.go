package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name: "with wrapped error",
			err: &DomainError{
				Code:    "gateway_error",
				Message: "payment gateway charge failed",
				Err:     errors.New("connection reset"),
			},
			expected: "payment gateway charge failed: connection reset",
		},
		{
			name: "without wrapped error",
			err: &DomainError{
				Code:    "invalid_transition",
				Message: "cannot transition from APPROVED to ERROR",
			},
			expected: "cannot transition from APPROVED to ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	domainErr := NewDomainError("test", "test message", originalErr)

	assert.Equal(t, originalErr, domainErr.Unwrap())
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("quantity", "must be at least 1")

	assert.Equal(t, "validation failed for field quantity: must be at least 1", err.Error())
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestGatewayError_KeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := GatewayError("tokenize", cause)

	assert.ErrorIs(t, err, ErrGateway)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "tokenize")

	var de *DomainError
	assert.True(t, errors.As(err, &de))
	assert.Equal(t, "gateway_error", de.Code)
}

func TestPersistenceError_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := PersistenceError("update transaction", cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindInternal},
		{"validation", NewValidationError("email", "required"), KindValidation},
		{"insufficient stock", fmt.Errorf("finish: %w", ErrInsufficientStock), KindInsufficientStock},
		{"transaction not found", ErrTransactionNotFound, KindTransactionNotFound},
		{"product not found", ErrProductNotFound, KindProductNotFound},
		{"already finished", ErrTransactionAlreadyFinished, KindTransactionAlreadyFinished},
		{"gateway", GatewayError("charge", errors.New("502")), KindGateway},
		{"persistence", PersistenceError("save", errors.New("down")), KindPersistence},
		{"already finished wins over persistence", errors.Join(ErrTransactionAlreadyFinished, ErrPersistence), KindTransactionAlreadyFinished},
		{"unknown", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "insufficient_stock", KindInsufficientStock.String())
	assert.Equal(t, "internal_error", Kind(99).String())
}
