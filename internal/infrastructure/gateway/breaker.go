package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/sony/gobreaker/v2"
)

// BreakerGateway guards a gateway with a circuit breaker and records call
// metrics. When the breaker is open calls fail fast and nothing is charged.
type BreakerGateway struct {
	next    checkout.PaymentGateway
	name    string
	cb      *gobreaker.CircuitBreaker[any]
	metrics *observability.Metrics
}

// BreakerSettings configures when the breaker opens.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

func NewBreakerGateway(next checkout.PaymentGateway, name string, s BreakerSettings, metrics *observability.Metrics) *BreakerGateway {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	g := &BreakerGateway{next: next, name: name, metrics: metrics}
	g.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// A caller giving up is not a gateway failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return g
}

func (g *BreakerGateway) State() gobreaker.State {
	return g.cb.State()
}

func (g *BreakerGateway) AcceptanceTerms(ctx context.Context) ([]payment.Acceptance, error) {
	return call(g, "acceptance_terms", func() ([]payment.Acceptance, error) {
		return g.next.AcceptanceTerms(ctx)
	})
}

func (g *BreakerGateway) TokenizeCard(ctx context.Context, card payment.Card) (payment.CardToken, error) {
	return call(g, "tokenize", func() (payment.CardToken, error) {
		return g.next.TokenizeCard(ctx, card)
	})
}

func (g *BreakerGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	return call(g, "charge", func() (payment.ChargeResult, error) {
		return g.next.Charge(ctx, req)
	})
}

func call[T any](g *BreakerGateway, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := g.cb.Execute(func() (any, error) {
		return fn()
	})
	g.metrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	var zero T
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.metrics.GatewayRequests.WithLabelValues(op, "rejected").Inc()
		g.metrics.CircuitBreakerRequests.WithLabelValues(g.name, "rejected").Inc()
		return zero, err
	case err != nil:
		g.metrics.GatewayRequests.WithLabelValues(op, "error").Inc()
		g.metrics.CircuitBreakerRequests.WithLabelValues(g.name, "failure").Inc()
		return zero, err
	}

	g.metrics.GatewayRequests.WithLabelValues(op, "success").Inc()
	g.metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()
	result, _ := out.(T)
	return result, nil
}
