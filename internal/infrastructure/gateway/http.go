package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/pkg/retry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPConfig configures the REST gateway client.
type HTTPConfig struct {
	BaseURL      string
	PublicKey    string
	PrivateKey   string
	IntegrityKey string
	Timeout      time.Duration
	PollInterval time.Duration
	PollAttempts int
}

// HTTPGateway talks to the payment gateway's REST API. Public-key calls
// fetch terms and tokenize cards; the private key creates charges.
type HTTPGateway struct {
	cfg    HTTPConfig
	client *http.Client
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("gateway returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
}

func NewHTTPGateway(cfg HTTPConfig) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 10
	}
	return &HTTPGateway{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type merchantResponse struct {
	Data struct {
		PresignedAcceptance       acceptanceDoc `json:"presigned_acceptance"`
		PresignedPersonalDataAuth acceptanceDoc `json:"presigned_personal_data_auth"`
	} `json:"data"`
}

type acceptanceDoc struct {
	AcceptanceToken string `json:"acceptance_token"`
	Permalink       string `json:"permalink"`
	Type            string `json:"type"`
}

// AcceptanceTerms is a read, so transient failures are retried.
func (g *HTTPGateway) AcceptanceTerms(ctx context.Context) ([]payment.Acceptance, error) {
	var out merchantResponse
	err := retry.Do(ctx, retry.Config{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}, func() error {
		return g.permanentOn4xx(g.do(ctx, http.MethodGet, "/merchants/"+g.cfg.PublicKey, g.cfg.PublicKey, nil, &out))
	})
	if err != nil {
		return nil, fmt.Errorf("fetch acceptance terms: %w", err)
	}

	var terms []payment.Acceptance
	for _, doc := range []acceptanceDoc{out.Data.PresignedAcceptance, out.Data.PresignedPersonalDataAuth} {
		if doc.AcceptanceToken == "" {
			continue
		}
		terms = append(terms, payment.Acceptance{Type: doc.Type, AcceptanceToken: doc.AcceptanceToken, Permalink: doc.Permalink})
	}
	return terms, nil
}

type tokenizeRequest struct {
	Number     string `json:"number"`
	CVC        string `json:"cvc"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CardHolder string `json:"card_holder"`
}

type tokenizeResponse struct {
	Status string `json:"status"`
	Data   struct {
		ID        string    `json:"id"`
		Brand     string    `json:"brand"`
		LastFour  string    `json:"last_four"`
		ExpiresAt time.Time `json:"expires_at"`
	} `json:"data"`
}

func (g *HTTPGateway) TokenizeCard(ctx context.Context, card payment.Card) (payment.CardToken, error) {
	data := card.Reveal()
	body := tokenizeRequest{
		Number:     data.Number,
		CVC:        data.CVC,
		ExpMonth:   data.ExpMonth,
		ExpYear:    data.ExpYear,
		CardHolder: data.HolderName,
	}

	var out tokenizeResponse
	if err := g.do(ctx, http.MethodPost, "/tokens/cards", g.cfg.PublicKey, body, &out); err != nil {
		return payment.CardToken{}, fmt.Errorf("tokenize card: %w", err)
	}
	if out.Data.ID == "" {
		return payment.CardToken{}, fmt.Errorf("tokenize card: empty token in %q response", out.Status)
	}
	return payment.CardToken{
		ID:        out.Data.ID,
		Brand:     out.Data.Brand,
		Last4:     out.Data.LastFour,
		ExpiresAt: out.Data.ExpiresAt,
	}, nil
}

type chargeRequest struct {
	AmountInCents   int64         `json:"amount_in_cents"`
	Currency        string        `json:"currency"`
	Signature       string        `json:"signature"`
	CustomerEmail   string        `json:"customer_email"`
	Reference       string        `json:"reference"`
	AcceptanceToken string        `json:"acceptance_token"`
	PaymentMethod   paymentMethod `json:"payment_method"`
}

type paymentMethod struct {
	Type         string `json:"type"`
	Token        string `json:"token"`
	Installments int    `json:"installments"`
}

type transactionResponse struct {
	Data struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		StatusMessage string `json:"status_message"`
	} `json:"data"`
}

// Charge creates the gateway transaction once and then polls it until it
// settles. The create call is never retried. A charge still PENDING after
// the last poll is returned as PENDING.
func (g *HTTPGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	body := chargeRequest{
		AmountInCents:   req.AmountInCents,
		Currency:        req.Currency,
		Signature:       Signature(req.Reference, req.AmountInCents, req.Currency, g.cfg.IntegrityKey),
		CustomerEmail:   req.CustomerEmail,
		Reference:       req.Reference,
		AcceptanceToken: req.AcceptanceToken,
		PaymentMethod: paymentMethod{
			Type:         "CARD",
			Token:        req.Token.ID,
			Installments: req.Installments,
		},
	}

	var created transactionResponse
	if err := g.do(ctx, http.MethodPost, "/transactions", g.cfg.PrivateKey, body, &created); err != nil {
		return payment.ChargeResult{}, fmt.Errorf("create transaction: %w", err)
	}
	result := toChargeResult(created)
	if result.TransactionID == "" {
		return payment.ChargeResult{}, errors.New("create transaction: gateway returned no transaction id")
	}
	if result.Status.IsFinal() {
		return result, nil
	}
	return g.poll(ctx, result), nil
}

var errNotSettled = errors.New("transaction not settled")

func (g *HTTPGateway) poll(ctx context.Context, pending payment.ChargeResult) payment.ChargeResult {
	last := pending
	_ = retry.Do(ctx, retry.Config{
		MaxAttempts:  uint(g.cfg.PollAttempts),
		InitialDelay: g.cfg.PollInterval,
		MaxDelay:     g.cfg.PollInterval * 4,
	}, func() error {
		var out transactionResponse
		if err := g.do(ctx, http.MethodGet, "/transactions/"+pending.TransactionID, g.cfg.PublicKey, nil, &out); err != nil {
			return err
		}
		last = toChargeResult(out)
		if last.TransactionID == "" {
			last.TransactionID = pending.TransactionID
		}
		if !last.Status.IsFinal() {
			return errNotSettled
		}
		return nil
	})
	return last
}

func toChargeResult(r transactionResponse) payment.ChargeResult {
	return payment.ChargeResult{
		TransactionID: r.Data.ID,
		Status:        payment.GatewayStatus(strings.ToUpper(r.Data.Status)),
		StatusMessage: r.Data.StatusMessage,
	}
}

// Signature is the integrity hash the gateway verifies on every charge:
// hex(sha256(reference + amount + currency + integrity key)).
func Signature(reference string, amountInCents int64, currency, integrityKey string) string {
	sum := sha256.Sum256([]byte(reference + strconv.FormatInt(amountInCents, 10) + currency + integrityKey))
	return hex.EncodeToString(sum[:])
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func (g *HTTPGateway) do(ctx context.Context, method, path, key string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(g.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Type = e.Error.Type
			apiErr.Message = e.Error.Reason
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (g *HTTPGateway) permanentOn4xx(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return retry.Permanent(err)
	}
	return err
}
