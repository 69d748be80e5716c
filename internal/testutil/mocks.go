package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/domain/customer"
	"github.com/cassiomorais/checkout/internal/domain/delivery"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
)

// --- Product Repository Mock ---

// MockProductRepository is a mock implementation of product.Repository.
type MockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*product.Product

	DecrementCalls int

	GetByIDFunc                   func(ctx context.Context, id uuid.UUID) (*product.Product, error)
	DecrementStockIfAvailableFunc func(ctx context.Context, id uuid.UUID, qty int) error
	CreateFunc                    func(ctx context.Context, p *product.Product) error
	ListFunc                      func(ctx context.Context, filter product.ListFilter) ([]*product.Product, error)
	AddStockFunc                  func(ctx context.Context, id uuid.UUID, qty int) (*product.Product, error)
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{products: make(map[uuid.UUID]*product.Product)}
}

// AddProduct pre-populates the mock with a product.
func (m *MockProductRepository) AddProduct(p *product.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.products[p.ID] = &cp
}

// SetStock overwrites the stored stock (test helper).
func (m *MockProductRepository) SetStock(id uuid.UUID, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		p.Stock = stock
	}
}

// StockOf returns the stored stock (test helper, no context needed).
func (m *MockProductRepository) StockOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p.Stock
	}
	return -1
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domainErrors.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockProductRepository) DecrementStockIfAvailable(ctx context.Context, id uuid.UUID, qty int) error {
	m.mu.Lock()
	m.DecrementCalls++
	m.mu.Unlock()
	if m.DecrementStockIfAvailableFunc != nil {
		return m.DecrementStockIfAvailableFunc(ctx, id, qty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domainErrors.ErrProductNotFound
	}
	if p.Stock < qty {
		return domainErrors.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (m *MockProductRepository) Create(ctx context.Context, p *product.Product) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.AddProduct(p)
	return nil
}

func (m *MockProductRepository) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*product.Product, 0, len(m.products))
	for _, p := range m.products {
		if filter.InStockOnly && p.Stock == 0 {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockProductRepository) AddStock(ctx context.Context, id uuid.UUID, qty int) (*product.Product, error) {
	if m.AddStockFunc != nil {
		return m.AddStockFunc(ctx, id, qty)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domainErrors.ErrProductNotFound
	}
	p.Stock += qty
	cp := *p
	return &cp, nil
}

// --- Customer Repository Mock ---

// MockCustomerRepository is a mock implementation of customer.Repository.
type MockCustomerRepository struct {
	mu      sync.Mutex
	byEmail map[string]*customer.Customer

	SaveCalls int

	ExistsByEmailFunc func(ctx context.Context, email string) (bool, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*customer.Customer, error)
	SaveFunc          func(ctx context.Context, c *customer.Customer) (*customer.Customer, error)
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{byEmail: make(map[string]*customer.Customer)}
}

// AddCustomer pre-populates the mock with a customer.
func (m *MockCustomerRepository) AddCustomer(c *customer.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.byEmail[c.Email] = &cp
}

// Count returns how many customers are stored.
func (m *MockCustomerRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byEmail)
}

func (m *MockCustomerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.ExistsByEmailFunc != nil {
		return m.ExistsByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *MockCustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byEmail[email]
	if !ok {
		return nil, domainErrors.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockCustomerRepository) Save(ctx context.Context, c *customer.Customer) (*customer.Customer, error) {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byEmail[c.Email]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *c
	cp.ID = uuid.New()
	m.byEmail[cp.Email] = &cp
	out := cp
	return &out, nil
}

// --- Delivery Repository Mock ---

// MockDeliveryRepository is a mock implementation of delivery.Repository.
type MockDeliveryRepository struct {
	mu     sync.Mutex
	saved  []*delivery.Delivery
	Policy delivery.FeePolicy

	SaveFunc func(ctx context.Context, d *delivery.Delivery) (*delivery.Delivery, error)
}

func NewMockDeliveryRepository(baseFee int64) *MockDeliveryRepository {
	return &MockDeliveryRepository{Policy: delivery.NewFeePolicy(baseFee, nil)}
}

// Count returns how many deliveries were saved.
func (m *MockDeliveryRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *MockDeliveryRepository) Save(ctx context.Context, d *delivery.Delivery) (*delivery.Delivery, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	cp.ID = uuid.New()
	cp.Fee = m.Policy.FeeFor(&cp)
	m.saved = append(m.saved, &cp)
	out := cp
	return &out, nil
}

// --- Status Registry Mock ---

// MockStatusRegistry resolves the seeded statuses with IDs 1..5.
type MockStatusRegistry struct {
	FindByNameFunc func(ctx context.Context, name status.Name) (status.Status, error)
}

func NewMockStatusRegistry() *MockStatusRegistry {
	return &MockStatusRegistry{}
}

func (m *MockStatusRegistry) FindByName(ctx context.Context, name status.Name) (status.Status, error) {
	if m.FindByNameFunc != nil {
		return m.FindByNameFunc(ctx, name)
	}
	for i, n := range status.Names {
		if n == name {
			return status.Status{ID: i + 1, Name: n}, nil
		}
	}
	return status.Status{}, domainErrors.ErrStatusNotFound
}

// --- Transaction Repository Mock ---

// MockTransactionRepository is a mock implementation of transaction.Repository.
// UpdateIfPending is atomic under the mock's mutex, like the SQL version.
type MockTransactionRepository struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*transaction.OrderTransaction

	CreateFunc          func(ctx context.Context, t *transaction.OrderTransaction) error
	GetByIDFunc         func(ctx context.Context, id uuid.UUID) (*transaction.OrderTransaction, error)
	UpdateIfPendingFunc func(ctx context.Context, t *transaction.OrderTransaction) error
	ListFunc            func(ctx context.Context, filter transaction.ListFilter) ([]*transaction.OrderTransaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{transactions: make(map[uuid.UUID]*transaction.OrderTransaction)}
}

// AddTransaction pre-populates the mock with a transaction.
func (m *MockTransactionRepository) AddTransaction(t *transaction.OrderTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = copyTransaction(t)
}

// Stored returns a copy of the stored transaction (test helper).
func (m *MockTransactionRepository) Stored(id uuid.UUID) *transaction.OrderTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil
	}
	return copyTransaction(t)
}

// Count returns how many transactions are stored.
func (m *MockTransactionRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions)
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *transaction.OrderTransaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	m.AddTransaction(t)
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.OrderTransaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	t := m.Stored(id)
	if t == nil {
		return nil, domainErrors.ErrTransactionNotFound
	}
	return t, nil
}

func (m *MockTransactionRepository) UpdateIfPending(ctx context.Context, t *transaction.OrderTransaction) error {
	if m.UpdateIfPendingFunc != nil {
		return m.UpdateIfPendingFunc(ctx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.transactions[t.ID]
	if !ok {
		return domainErrors.ErrTransactionNotFound
	}
	if stored.Status.Name != status.Pending {
		return domainErrors.ErrTransactionAlreadyFinished
	}
	m.transactions[t.ID] = copyTransaction(t)
	return nil
}

func (m *MockTransactionRepository) List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.OrderTransaction, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*transaction.OrderTransaction, 0, len(m.transactions))
	for _, t := range m.transactions {
		if filter.Status != nil && t.Status.Name != *filter.Status {
			continue
		}
		result = append(result, copyTransaction(t))
	}
	return result, nil
}

func copyTransaction(t *transaction.OrderTransaction) *transaction.OrderTransaction {
	cp := *t
	if t.GatewayTransactionID != nil {
		id := *t.GatewayTransactionID
		cp.GatewayTransactionID = &id
	}
	if t.FinishedAt != nil {
		at := *t.FinishedAt
		cp.FinishedAt = &at
	}
	return &cp
}

// --- Payment Gateway Mock ---

// MockPaymentGateway is a mock implementation of checkout.PaymentGateway.
// By default it tokenizes any card and approves every charge.
type MockPaymentGateway struct {
	mu            sync.Mutex
	TokenizeCalls int
	ChargeCalls   int
	Charges       []payment.ChargeRequest

	AcceptanceTermsFunc func(ctx context.Context) ([]payment.Acceptance, error)
	TokenizeCardFunc    func(ctx context.Context, card payment.Card) (payment.CardToken, error)
	ChargeFunc          func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

// Calls returns the tokenize and charge counts.
func (m *MockPaymentGateway) Calls() (tokenize, charge int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TokenizeCalls, m.ChargeCalls
}

func (m *MockPaymentGateway) AcceptanceTerms(ctx context.Context) ([]payment.Acceptance, error) {
	if m.AcceptanceTermsFunc != nil {
		return m.AcceptanceTermsFunc(ctx)
	}
	return []payment.Acceptance{{Type: "END_USER_POLICY", AcceptanceToken: "acc_test", Permalink: "https://example.com/terms.pdf"}}, nil
}

func (m *MockPaymentGateway) TokenizeCard(ctx context.Context, card payment.Card) (payment.CardToken, error) {
	m.mu.Lock()
	m.TokenizeCalls++
	m.mu.Unlock()
	if m.TokenizeCardFunc != nil {
		return m.TokenizeCardFunc(ctx, card)
	}
	return payment.CardToken{ID: "tok_test_" + card.Last4(), Brand: "VISA", Last4: card.Last4()}, nil
}

func (m *MockPaymentGateway) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	m.mu.Lock()
	m.ChargeCalls++
	m.Charges = append(m.Charges, req)
	m.mu.Unlock()
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, req)
	}
	return payment.ChargeResult{TransactionID: "gw_" + req.Reference, Status: payment.GatewayApproved}, nil
}

// --- Reconciliation Reporter Mock ---

// MockReconciliationReporter records every discrepancy it receives.
type MockReconciliationReporter struct {
	mu      sync.Mutex
	reports []checkout.Discrepancy

	ReportFunc func(ctx context.Context, d checkout.Discrepancy) error
}

func NewMockReconciliationReporter() *MockReconciliationReporter {
	return &MockReconciliationReporter{}
}

func (m *MockReconciliationReporter) Report(ctx context.Context, d checkout.Discrepancy) error {
	m.mu.Lock()
	m.reports = append(m.reports, d)
	m.mu.Unlock()
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, d)
	}
	return nil
}

// Reports returns a copy of the recorded discrepancies.
func (m *MockReconciliationReporter) Reports() []checkout.Discrepancy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]checkout.Discrepancy(nil), m.reports...)
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Outbox Repository Mock ---

// MockOutboxRepository is a mock implementation of outbox.Repository.
type MockOutboxRepository struct {
	mu      sync.Mutex
	entries []*outbox.Entry

	InsertFunc        func(ctx context.Context, entry *outbox.Entry) error
	GetPendingFunc    func(ctx context.Context, limit int) ([]*outbox.Entry, error)
	MarkPublishedFunc func(ctx context.Context, id uuid.UUID) error
	MarkFailedFunc    func(ctx context.Context, id uuid.UUID) error
	DeleteFunc        func(ctx context.Context, cutoff time.Time) (int64, error)

	Published []uuid.UUID
	Failed    []uuid.UUID
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Entries returns the inserted entries.
func (m *MockOutboxRepository) Entries() []*outbox.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*outbox.Entry(nil), m.entries...)
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	return nil, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, id)
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failed = append(m.Failed, id)
	return nil
}

func (m *MockOutboxRepository) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, cutoff)
	}
	return 0, nil
}
