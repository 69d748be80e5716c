package transaction

import (
	"math"
	"testing"

	"github.com/cassiomorais/checkout/internal/domain/customer"
	"github.com/cassiomorais/checkout/internal/domain/delivery"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pending  = status.Status{ID: 1, Name: status.Pending}
	approved = status.Status{ID: 2, Name: status.Approved}
	declined = status.Status{ID: 3, Name: status.Declined}
	voided   = status.Status{ID: 4, Name: status.Voided}
	failed   = status.Status{ID: 5, Name: status.Error}
)

func newPending(t *testing.T) *OrderTransaction {
	t.Helper()
	tx, err := New(
		2,
		product.Product{ID: uuid.New(), Name: "Laptop", Price: 299999, Stock: 5},
		delivery.Delivery{ID: uuid.New(), Fee: 15000},
		customer.Customer{ID: uuid.New(), Email: "ana@example.com"},
		pending,
		Pricing{Currency: "COP"},
	)
	require.NoError(t, err)
	return tx
}

func TestNew_ComputesTotal(t *testing.T) {
	tx := newPending(t)

	assert.Equal(t, int64(614998), tx.Total)
	assert.Equal(t, status.Pending, tx.Status.Name)
	assert.Nil(t, tx.GatewayTransactionID)
	assert.Nil(t, tx.FinishedAt)
	assert.False(t, tx.CreatedAt.IsZero())
}

func TestNew_Validation(t *testing.T) {
	p := product.Product{Price: 100}

	_, err := New(0, p, delivery.Delivery{}, customer.Customer{}, pending, Pricing{Currency: "COP"})
	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)

	_, err = New(1, p, delivery.Delivery{}, customer.Customer{}, approved, Pricing{Currency: "COP"})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)

	_, err = New(1, p, delivery.Delivery{}, customer.Customer{}, pending, Pricing{Currency: "PESOS"})
	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
}

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		qty      int
		fee      int64
		taxBps   int64
		expected int64
	}{
		{"no tax", 299999, 2, 15000, 0, 614998},
		{"19 percent vat", 10000, 3, 5000, 1900, 40700},
		{"tax truncates", 333, 1, 0, 1900, 396},
		{"free shipping", 5000, 1, 0, 0, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := ComputeTotal(tt.price, tt.qty, tt.fee, tt.taxBps)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, total)
		})
	}
}

func TestComputeTotal_RejectsOverflow(t *testing.T) {
	tests := []struct {
		name   string
		price  int64
		qty    int
		fee    int64
		taxBps int64
	}{
		{"subtotal wraps", math.MaxInt64/2 + 1, 2, 15000, 0},
		{"fee pushes past max", math.MaxInt64 - 10, 1, 11, 0},
		{"tax pushes past max", math.MaxInt64/2 + 1, 1, 0, 10000},
		{"huge tax rate", 5000, 1, 0, math.MaxInt64},
		{"negative price", -1, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, err := ComputeTotal(tt.price, tt.qty, tt.fee, tt.taxBps)
			assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
			assert.Zero(t, total)
		})
	}
}

func TestComputeTotal_LargestFittingTotal(t *testing.T) {
	total, err := ComputeTotal(math.MaxInt64-15000, 1, 15000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), total)
}

func TestNew_RejectsOverflowingTotal(t *testing.T) {
	p := product.Product{Price: math.MaxInt64/2 + 1}

	tx, err := New(2, p, delivery.Delivery{Fee: 15000}, customer.Customer{}, pending, Pricing{Currency: "COP"})
	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
	assert.Nil(t, tx)
}

func TestOrderTransaction_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     status.Name
		to       status.Name
		expected bool
	}{
		{status.Pending, status.Approved, true},
		{status.Pending, status.Declined, true},
		{status.Pending, status.Voided, true},
		{status.Pending, status.Error, true},
		{status.Pending, status.Pending, false},
		{status.Approved, status.Error, false},
		{status.Declined, status.Approved, false},
		{status.Voided, status.Pending, false},
		{status.Error, status.Approved, false},
		{"UNKNOWN", status.Approved, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			tx := &OrderTransaction{Status: status.Status{Name: tt.from}}
			assert.Equal(t, tt.expected, tx.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderTransaction_Finish(t *testing.T) {
	for _, next := range []status.Status{approved, declined, voided, failed} {
		t.Run(string(next.Name), func(t *testing.T) {
			tx := newPending(t)

			require.NoError(t, tx.Finish("gw-123", next))
			assert.Equal(t, next, tx.Status)
			require.NotNil(t, tx.GatewayTransactionID)
			assert.Equal(t, "gw-123", *tx.GatewayTransactionID)
			assert.NotNil(t, tx.FinishedAt)
			assert.True(t, tx.IsTerminal())
			assert.False(t, tx.IsPending())
		})
	}
}

func TestOrderTransaction_FinishWithoutGatewayID(t *testing.T) {
	tx := newPending(t)

	require.NoError(t, tx.Finish("", failed))
	assert.Nil(t, tx.GatewayTransactionID)
}

func TestOrderTransaction_TerminalIsFinal(t *testing.T) {
	tx := newPending(t)
	require.NoError(t, tx.Finish("gw-1", approved))

	err := tx.Finish("gw-2", declined)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
	assert.Equal(t, "gw-1", *tx.GatewayTransactionID)
	assert.Equal(t, status.Approved, tx.Status.Name)
}
