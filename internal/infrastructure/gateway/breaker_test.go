package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetrics() *observability.Metrics {
	return observability.NewMetrics("test", prometheus.NewRegistry())
}

func TestBreakerGateway_PassesThrough(t *testing.T) {
	inner := testutil.NewMockPaymentGateway()
	metrics := newMetrics()
	g := NewBreakerGateway(inner, "gw", BreakerSettings{}, metrics)

	result, err := g.Charge(context.Background(), payment.ChargeRequest{Reference: "ref-1"})
	require.NoError(t, err)
	assert.Equal(t, "gw_ref-1", result.TransactionID)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.GatewayRequests.WithLabelValues("charge", "success")))
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestBreakerGateway_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := testutil.NewMockPaymentGateway()
	inner.ChargeFunc = func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		return payment.ChargeResult{}, errors.New("connection refused")
	}
	metrics := newMetrics()
	g := NewBreakerGateway(inner, "gw", BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, metrics)
	ctx := context.Background()

	for range 2 {
		_, err := g.Charge(ctx, payment.ChargeRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.Charge(ctx, payment.ChargeRequest{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	_, charges := inner.Calls()
	assert.Equal(t, 2, charges)
	assert.Equal(t, 2.0, promtest.ToFloat64(metrics.GatewayRequests.WithLabelValues("charge", "error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.GatewayRequests.WithLabelValues("charge", "rejected")))
	assert.Equal(t, float64(gobreaker.StateOpen), promtest.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("gw")))
}

func TestBreakerGateway_CanceledCallsDoNotTrip(t *testing.T) {
	inner := testutil.NewMockPaymentGateway()
	inner.TokenizeCardFunc = func(ctx context.Context, card payment.Card) (payment.CardToken, error) {
		return payment.CardToken{}, context.Canceled
	}
	g := NewBreakerGateway(inner, "gw", BreakerSettings{ConsecutiveFailures: 1}, newMetrics())

	for range 3 {
		_, err := g.TokenizeCard(context.Background(), testCard(t, CardApproved))
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
}

func TestNew(t *testing.T) {
	metrics := newMetrics()

	g, err := New(config.GatewayConfig{Driver: "mock"}, metrics)
	require.NoError(t, err)
	assert.IsType(t, &BreakerGateway{}, g)

	g, err = New(config.GatewayConfig{Driver: "http", BaseURL: "http://localhost:1", PublicKey: "pub", PrivateKey: "prv"}, metrics)
	require.NoError(t, err)
	assert.IsType(t, &HTTPGateway{}, g.(*BreakerGateway).next)

	_, err = New(config.GatewayConfig{Driver: "stripe"}, metrics)
	assert.Error(t, err)
}
