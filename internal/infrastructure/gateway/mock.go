package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/google/uuid"
)

// Test card numbers with a fixed outcome. Any other valid card is approved.
const (
	CardApproved = "4242424242424242"
	CardDeclined = "4111111111111111"
	CardError    = "4000000000000119"
	CardPending  = "4000000000000259"
)

var ErrUnknownToken = errors.New("unknown card token")

// MockGateway is an in-process gateway for local runs and tests. Outcomes
// depend only on the card number.
type MockGateway struct {
	latency  time.Duration
	outcomes map[string]payment.GatewayStatus

	mu     sync.Mutex
	tokens map[string]string
}

type MockOption func(*MockGateway)

func WithLatency(d time.Duration) MockOption {
	return func(g *MockGateway) { g.latency = d }
}

// WithOutcome makes charges on the given card number end in status.
func WithOutcome(number string, status payment.GatewayStatus) MockOption {
	return func(g *MockGateway) { g.outcomes[number] = status }
}

func NewMockGateway(opts ...MockOption) *MockGateway {
	g := &MockGateway{
		latency: 50 * time.Millisecond,
		outcomes: map[string]payment.GatewayStatus{
			CardDeclined: payment.GatewayDeclined,
			CardError:    payment.GatewayError,
			CardPending:  payment.GatewayPending,
		},
		tokens: make(map[string]string),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) wait(ctx context.Context) error {
	select {
	case <-time.After(g.latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *MockGateway) AcceptanceTerms(ctx context.Context) ([]payment.Acceptance, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	return []payment.Acceptance{
		{Type: "END_USER_POLICY", AcceptanceToken: "mock_acceptance_" + uuid.NewString(), Permalink: "https://example.com/terms.pdf"},
		{Type: "PERSONAL_DATA_AUTH", AcceptanceToken: "mock_personal_data_" + uuid.NewString(), Permalink: "https://example.com/privacy.pdf"},
	}, nil
}

func (g *MockGateway) TokenizeCard(ctx context.Context, card payment.Card) (payment.CardToken, error) {
	if err := g.wait(ctx); err != nil {
		return payment.CardToken{}, err
	}
	data := card.Reveal()
	id := "tok_mock_" + uuid.NewString()

	g.mu.Lock()
	g.tokens[id] = data.Number
	g.mu.Unlock()

	return payment.CardToken{
		ID:        id,
		Brand:     brandOf(data.Number),
		Last4:     card.Last4(),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

func (g *MockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	if err := g.wait(ctx); err != nil {
		return payment.ChargeResult{}, err
	}

	g.mu.Lock()
	number, ok := g.tokens[req.Token.ID]
	g.mu.Unlock()
	if !ok {
		return payment.ChargeResult{}, ErrUnknownToken
	}

	status, ok := g.outcomes[number]
	if !ok {
		status = payment.GatewayApproved
	}
	result := payment.ChargeResult{
		TransactionID: "mock_txn_" + uuid.NewString(),
		Status:        status,
	}
	if status != payment.GatewayApproved {
		result.StatusMessage = "mock outcome for card ending " + req.Token.Last4
	}
	return result, nil
}

func brandOf(number string) string {
	switch {
	case number == "":
		return ""
	case number[0] == '4':
		return "VISA"
	case number[0] == '5':
		return "MASTERCARD"
	case number[0] == '3':
		return "AMEX"
	default:
		return "UNKNOWN"
	}
}
