package checkout

import (
	"context"

	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/google/uuid"
)

// GetTransactionUseCase retrieves a transaction by ID.
type GetTransactionUseCase struct {
	transactions transaction.Repository
}

func NewGetTransactionUseCase(transactions transaction.Repository) *GetTransactionUseCase {
	return &GetTransactionUseCase{transactions: transactions}
}

func (uc *GetTransactionUseCase) Execute(ctx context.Context, id uuid.UUID) (*transaction.OrderTransaction, error) {
	t, err := uc.transactions.GetByID(ctx, id)
	if err != nil {
		return nil, passOrPersistence("load transaction", err)
	}
	return t, nil
}

// ListTransactionsUseCase lists transactions with filters.
type ListTransactionsUseCase struct {
	transactions transaction.Repository
}

func NewListTransactionsUseCase(transactions transaction.Repository) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{transactions: transactions}
}

func (uc *ListTransactionsUseCase) Execute(ctx context.Context, filter transaction.ListFilter) ([]*transaction.OrderTransaction, error) {
	filter = filter.WithDefaults()
	list, err := uc.transactions.List(ctx, filter)
	if err != nil {
		return nil, passOrPersistence("list transactions", err)
	}
	return list, nil
}

// AcceptanceTermsUseCase fetches the legal terms the customer must accept
// before a card can be charged.
type AcceptanceTermsUseCase struct {
	gateway PaymentGateway
}

func NewAcceptanceTermsUseCase(gateway PaymentGateway) *AcceptanceTermsUseCase {
	return &AcceptanceTermsUseCase{gateway: gateway}
}

func (uc *AcceptanceTermsUseCase) Execute(ctx context.Context) ([]payment.Acceptance, error) {
	terms, err := uc.gateway.AcceptanceTerms(ctx)
	if err != nil {
		return nil, passOrGateway("acceptance terms", err)
	}
	return terms, nil
}
