package gateway

import (
	"fmt"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
)

// New builds the configured gateway adapter wrapped in a circuit breaker.
func New(cfg config.GatewayConfig, metrics *observability.Metrics) (checkout.PaymentGateway, error) {
	var inner checkout.PaymentGateway
	switch cfg.Driver {
	case "mock":
		inner = NewMockGateway(WithLatency(cfg.MockLatency))
	case "http":
		inner = NewHTTPGateway(HTTPConfig{
			BaseURL:      cfg.BaseURL,
			PublicKey:    cfg.PublicKey,
			PrivateKey:   cfg.PrivateKey,
			IntegrityKey: cfg.IntegrityKey,
			Timeout:      cfg.Timeout,
			PollInterval: cfg.PollInterval,
			PollAttempts: cfg.PollAttempts,
		})
	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Driver)
	}

	return NewBreakerGateway(inner, "payment-gateway-"+cfg.Driver, BreakerSettings{
		ConsecutiveFailures: uint32(cfg.CircuitBreakerThreshold),
		OpenTimeout:         cfg.CircuitBreakerTimeout,
	}, metrics), nil
}
