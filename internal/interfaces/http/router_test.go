package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cassiomorais/checkout/internal/application/catalog"
	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/cassiomorais/checkout/internal/infrastructure/config"
	"github.com/cassiomorais/checkout/internal/infrastructure/observability"
	"github.com/cassiomorais/checkout/internal/infrastructure/postgres"
	appHTTP "github.com/cassiomorais/checkout/internal/interfaces/http"
	"github.com/cassiomorais/checkout/internal/interfaces/http/handlers"
	"github.com/cassiomorais/checkout/internal/interfaces/http/middleware"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*postgres.IdempotencyEntry
}

func (s *memoryStore) Get(ctx context.Context, key string) (*postgres.IdempotencyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key], nil
}

func (s *memoryStore) Set(ctx context.Context, e *postgres.IdempotencyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = e
	return nil
}

func newRouter(t *testing.T) (http.Handler, *testutil.MockProductRepository, *testutil.MockTransactionRepository) {
	t.Helper()
	products := testutil.NewMockProductRepository()
	transactions := testutil.NewMockTransactionRepository()
	gateway := testutil.NewMockPaymentGateway()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	orch := checkout.NewOrchestrator(checkout.Ports{
		Products:     products,
		Customers:    testutil.NewMockCustomerRepository(),
		Deliveries:   testutil.NewMockDeliveryRepository(15000),
		Statuses:     testutil.NewMockStatusRegistry(),
		Transactions: transactions,
		Gateway:      gateway,
		Outbox:       testutil.NewMockOutboxRepository(),
		TxManager:    testutil.NewMockTransactionManager(),
		Reconciler:   testutil.NewMockReconciliationReporter(),
	}, transaction.Pricing{Currency: "COP"})

	router := appHTTP.NewRouter(appHTTP.RouterDeps{
		Transactions: handlers.NewTransactionHandler(
			orch,
			checkout.NewGetTransactionUseCase(transactions),
			checkout.NewListTransactionsUseCase(transactions),
			checkout.NewAcceptanceTermsUseCase(gateway),
			nil,
			metrics,
		),
		Products: handlers.NewProductHandler(
			catalog.NewCreateProductUseCase(products),
			catalog.NewGetProductUseCase(products),
			catalog.NewListProductsUseCase(products),
			catalog.NewAddStockUseCase(products),
		),
		Health:         handlers.NewHealthHandler(),
		Idempotency:    &memoryStore{entries: make(map[string]*postgres.IdempotencyEntry)},
		IdempotencyTTL: time.Hour,
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Server:         config.ServerConfig{RateLimit: 1000},
		JWTSecret:      secret,
	})
	return router, products, transactions
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := middleware.IssueToken(secret, "ops@example.com", middleware.RoleAdmin, time.Hour)
	require.NoError(t, err)
	return token
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router, _, _ := newRouter(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		w := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	}

	serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	w := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_http_requests_total{method="GET",path="/api/v1/products",status="200"} 1`)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	router, _, _ := newRouter(t)
	body := `{"name":"Laptop","price":299999,"stock":2}`

	w := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t))
	w = serve(router, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Laptop")
}

func TestRouter_StartIsIdempotent(t *testing.T) {
	router, products, transactions := newRouter(t)
	p := testutil.NewTestProduct(299999, 10)
	products.AddProduct(p)

	body := `{"product_id":"` + p.ID.String() + `","quantity":2,
		"customer":{"name":"Ana","last_name":"Ruiz","dni":"1020304050","phone":"3001234567","email":"ana@example.com"},
		"delivery":{"address":"Calle 10","country":"CO","city":"Medellin","region":"Antioquia","postal_code":"050021","recipient_name":"Ana Ruiz"}}`

	var bodies []string
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "order-42")
		w := serve(router, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		bodies = append(bodies, w.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
	assert.Equal(t, 1, transactions.Count())
}
