package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/cassiomorais/checkout/internal/domain/payment"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pendingTransaction seeds a product and a PENDING transaction for it.
func pendingTransaction(f *fixture, price int64, stock, qty int) *transaction.OrderTransaction {
	p := testutil.NewTestProduct(price, stock)
	f.products.AddProduct(p)
	tx := testutil.NewTestTransaction(p, qty, 15000, status.Pending)
	f.transactions.AddTransaction(tx)
	return tx
}

func finishRequest(t *testing.T, id uuid.UUID) checkout.FinishTransactionRequest {
	return checkout.FinishTransactionRequest{
		TransactionID:   id,
		Card:            testutil.NewTestCard(t),
		AcceptanceToken: "acc_test",
	}
}

func TestFinishTransaction_Approved(t *testing.T) {
	ctx := context.Background()
	f := newFixture(15000)
	p := testutil.NewTestProduct(299999, 10)
	f.products.AddProduct(p)

	started, err := f.orchestrator.StartTransaction(ctx, startRequest(p.ID, 2))
	require.NoError(t, err)
	require.Equal(t, int64(614998), started.Total)

	finished, err := f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, started.ID))
	require.NoError(t, err)

	assert.Equal(t, status.Approved, finished.Status.Name)
	require.NotNil(t, finished.GatewayTransactionID)
	assert.Equal(t, "gw_"+started.ID.String(), *finished.GatewayTransactionID)
	assert.NotNil(t, finished.FinishedAt)
	assert.Equal(t, 8, f.products.StockOf(p.ID))
	assert.Equal(t, 1, f.products.DecrementCalls)

	stored := f.transactions.Stored(started.ID)
	assert.Equal(t, status.Approved, stored.Status.Name)
	assert.Equal(t, *finished.GatewayTransactionID, *stored.GatewayTransactionID)

	tokenize, charge := f.gateway.Calls()
	assert.Equal(t, 1, tokenize)
	assert.Equal(t, 1, charge)
	chargeReq := f.gateway.Charges[0]
	assert.Equal(t, int64(614998), chargeReq.AmountInCents)
	assert.Equal(t, "COP", chargeReq.Currency)
	assert.Equal(t, started.ID.String(), chargeReq.Reference)
	assert.Equal(t, "ana@example.com", chargeReq.CustomerEmail)
	assert.Equal(t, 1, chargeReq.Installments)
	assert.Equal(t, "acc_test", chargeReq.AcceptanceToken)

	entries := f.outbox.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, outbox.EventTransactionFinished, entries[1].EventType)
	assert.Empty(t, f.reconciler.Reports())
}

func TestFinishTransaction_GatewayOutcomes(t *testing.T) {
	tests := []struct {
		gateway       payment.GatewayStatus
		want          status.Name
		wantDecrement bool
		wantReport    bool
	}{
		{payment.GatewayApproved, status.Approved, true, false},
		{payment.GatewayDeclined, status.Declined, false, false},
		{payment.GatewayVoided, status.Voided, false, false},
		{payment.GatewayError, status.Error, false, false},
		{payment.GatewayPending, status.Error, false, true},
		{"SOMETHING_NEW", status.Error, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.gateway), func(t *testing.T) {
			f := newFixture(15000)
			tx := pendingTransaction(f, 1000, 5, 2)
			f.gateway.ChargeFunc = func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
				return payment.ChargeResult{TransactionID: "gw-1", Status: tt.gateway}, nil
			}

			finished, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))
			require.NoError(t, err)

			assert.Equal(t, tt.want, finished.Status.Name)
			assert.Equal(t, "gw-1", *finished.GatewayTransactionID)
			assert.Equal(t, tt.want, f.transactions.Stored(tx.ID).Status.Name)
			if tt.wantDecrement {
				assert.Equal(t, 3, f.products.StockOf(tx.Product.ID))
			} else {
				assert.Equal(t, 5, f.products.StockOf(tx.Product.ID))
				assert.Equal(t, 0, f.products.DecrementCalls)
			}

			reports := f.reconciler.Reports()
			if tt.wantReport {
				require.Len(t, reports, 1)
				assert.Equal(t, checkout.ReasonUnsettledGatewayStatus, reports[0].Reason)
				assert.Equal(t, "gw-1", reports[0].GatewayTransactionID)
			} else {
				assert.Empty(t, reports)
			}
		})
	}
}

func TestFinishTransaction_UnknownID(t *testing.T) {
	f := newFixture(15000)

	_, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, uuid.New()))

	assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
	tokenize, charge := f.gateway.Calls()
	assert.Equal(t, 0, tokenize)
	assert.Equal(t, 0, charge)
}

func TestFinishTransaction_AlreadyFinished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(15000)
	p := testutil.NewTestProduct(299999, 10)
	f.products.AddProduct(p)

	started, err := f.orchestrator.StartTransaction(ctx, startRequest(p.ID, 2))
	require.NoError(t, err)
	first, err := f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, started.ID))
	require.NoError(t, err)
	gatewayID := *first.GatewayTransactionID

	_, err = f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, started.ID))

	assert.ErrorIs(t, err, domainErrors.ErrTransactionAlreadyFinished)
	assert.Equal(t, domainErrors.KindTransactionAlreadyFinished, domainErrors.KindOf(err))
	assert.Equal(t, 8, f.products.StockOf(p.ID))
	assert.Equal(t, gatewayID, *f.transactions.Stored(started.ID).GatewayTransactionID)
	_, charge := f.gateway.Calls()
	assert.Equal(t, 1, charge)
}

func TestFinishTransaction_TerminalStatusesAreRejected(t *testing.T) {
	for _, name := range []status.Name{status.Approved, status.Declined, status.Voided, status.Error} {
		t.Run(string(name), func(t *testing.T) {
			f := newFixture(15000)
			p := testutil.NewTestProduct(1000, 5)
			f.products.AddProduct(p)
			tx := testutil.NewTestTransaction(p, 1, 0, name)
			f.transactions.AddTransaction(tx)

			_, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))

			assert.ErrorIs(t, err, domainErrors.ErrTransactionAlreadyFinished)
			tokenize, _ := f.gateway.Calls()
			assert.Equal(t, 0, tokenize)
		})
	}
}

func TestFinishTransaction_StockGoneBeforeFinish(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 5, 2)
	f.products.SetStock(tx.Product.ID, 0)

	result, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domainErrors.ErrInsufficientStock)
	stored := f.transactions.Stored(tx.ID)
	assert.Equal(t, status.Error, stored.Status.Name)
	assert.Nil(t, stored.GatewayTransactionID)
	tokenize, charge := f.gateway.Calls()
	assert.Equal(t, 0, tokenize)
	assert.Equal(t, 0, charge)
	assert.Equal(t, 0, f.products.StockOf(tx.Product.ID))
}

func TestFinishTransaction_TokenizeFailureKeepsPending(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 5, 1)
	f.gateway.TokenizeCardFunc = func(ctx context.Context, card payment.Card) (payment.CardToken, error) {
		return payment.CardToken{}, context.DeadlineExceeded
	}

	_, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))

	assert.ErrorIs(t, err, domainErrors.ErrGateway)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, status.Pending, f.transactions.Stored(tx.ID).Status.Name)
	_, charge := f.gateway.Calls()
	assert.Equal(t, 0, charge)
}

func TestFinishTransaction_ChargeFailureKeepsPendingAndIsRetryable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 5, 1)
	f.gateway.ChargeFunc = func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		return payment.ChargeResult{}, errors.New("502 bad gateway")
	}

	_, err := f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, tx.ID))
	assert.ErrorIs(t, err, domainErrors.ErrGateway)
	assert.Equal(t, status.Pending, f.transactions.Stored(tx.ID).Status.Name)
	assert.Equal(t, 5, f.products.StockOf(tx.Product.ID))

	f.gateway.ChargeFunc = nil
	finished, err := f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, tx.ID))
	require.NoError(t, err)
	assert.Equal(t, status.Approved, finished.Status.Name)
	assert.Equal(t, 4, f.products.StockOf(tx.Product.ID))
}

func TestFinishTransaction_DecrementFailureStaysApproved(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 5, 2)
	f.products.DecrementStockIfAvailableFunc = func(ctx context.Context, id uuid.UUID, qty int) error {
		return domainErrors.ErrInsufficientStock
	}

	finished, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))
	require.NoError(t, err)

	assert.Equal(t, status.Approved, finished.Status.Name)
	assert.Equal(t, status.Approved, f.transactions.Stored(tx.ID).Status.Name)
	reports := f.reconciler.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, checkout.ReasonStockDecrementFailed, reports[0].Reason)
	assert.Equal(t, tx.ID, reports[0].TransactionID)
	assert.Equal(t, status.Approved, reports[0].LocalStatus)
	assert.Equal(t, tx.Total, reports[0].AmountInCents)
}

func TestFinishTransaction_PersistFailureAfterCharge(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 5, 1)
	dbErr := errors.New("database is down")
	f.transactions.UpdateIfPendingFunc = func(ctx context.Context, t *transaction.OrderTransaction) error {
		return dbErr
	}

	_, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))

	assert.ErrorIs(t, err, domainErrors.ErrPersistence)
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 5, f.products.StockOf(tx.Product.ID))
	reports := f.reconciler.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, checkout.ReasonPersistFailedAfterCharge, reports[0].Reason)
	assert.Equal(t, payment.GatewayApproved, reports[0].GatewayStatus)
}

func TestFinishTransaction_ReporterFailureDoesNotChangeOutcome(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 5, 1)
	f.products.DecrementStockIfAvailableFunc = func(ctx context.Context, id uuid.UUID, qty int) error {
		return errors.New("deadlock detected")
	}
	f.reconciler.ReportFunc = func(ctx context.Context, d checkout.Discrepancy) error {
		return errors.New("redis unavailable")
	}

	finished, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))
	require.NoError(t, err)
	assert.Equal(t, status.Approved, finished.Status.Name)
}

func TestFinishTransaction_MissingCard(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 5, 1)

	_, err := f.orchestrator.FinishTransactionWithCard(context.Background(), checkout.FinishTransactionRequest{TransactionID: tx.ID})

	assert.ErrorIs(t, err, domainErrors.ErrValidationFailed)
}

func TestFinishTransaction_ConcurrentFinishesHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 10, 3)

	// Hold every charge until all callers have passed the PENDING check so
	// the compare-and-set is what decides the winner.
	const callers = 5
	var ready sync.WaitGroup
	ready.Add(callers)
	release := make(chan struct{})
	f.gateway.ChargeFunc = func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		ready.Done()
		<-release
		return payment.ChargeResult{TransactionID: "gw-" + uuid.NewString(), Status: payment.GatewayApproved}, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, tx.ID))
		}(i)
	}
	ready.Wait()
	close(release)
	wg.Wait()

	wins, lost := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domainErrors.ErrTransactionAlreadyFinished):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, lost)
	assert.Equal(t, 7, f.products.StockOf(tx.Product.ID), "stock is consumed exactly once")
	assert.Equal(t, 1, f.products.DecrementCalls)

	reports := f.reconciler.Reports()
	assert.Len(t, reports, callers-1)
	for _, r := range reports {
		assert.Equal(t, checkout.ReasonLostFinishRace, r.Reason)
	}
}

func TestFinishTransaction_SecondCallNeverCharges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 10, 1)

	first, err := f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, tx.ID))
	require.NoError(t, err)
	require.Equal(t, status.Approved, first.Status.Name)

	_, err = f.orchestrator.FinishTransactionWithCard(ctx, finishRequest(t, tx.ID))

	assert.ErrorIs(t, err, domainErrors.ErrTransactionAlreadyFinished)
	tokenize, charge := f.gateway.Calls()
	assert.Equal(t, 1, tokenize)
	assert.Equal(t, 1, charge)
	assert.Equal(t, 9, f.products.StockOf(tx.Product.ID))
	assert.Equal(t, 1, f.products.DecrementCalls)
	assert.Empty(t, f.reconciler.Reports())
}

func TestFinishTransaction_LostRaceReportsStoredStatus(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 10, 1)

	// Another finish stores DECLINED between this caller's check and its write.
	winner := testutil.NewTestTransaction(&tx.Product, tx.Quantity, 15000, status.Declined)
	winner.ID = tx.ID
	f.transactions.UpdateIfPendingFunc = func(ctx context.Context, _ *transaction.OrderTransaction) error {
		f.transactions.AddTransaction(winner)
		return domainErrors.ErrTransactionAlreadyFinished
	}

	_, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))

	assert.ErrorIs(t, err, domainErrors.ErrTransactionAlreadyFinished)
	reports := f.reconciler.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, checkout.ReasonLostFinishRace, reports[0].Reason)
	assert.Equal(t, payment.GatewayApproved, reports[0].GatewayStatus)
	assert.Equal(t, status.Declined, reports[0].LocalStatus)
	assert.Equal(t, 10, f.products.StockOf(tx.Product.ID))
}

func TestFinishTransaction_LostRaceWithUnreadableRowLeavesStatusEmpty(t *testing.T) {
	f := newFixture(15000)
	tx := pendingTransaction(f, 1000, 10, 1)
	f.transactions.UpdateIfPendingFunc = func(ctx context.Context, _ *transaction.OrderTransaction) error {
		f.transactions.GetByIDFunc = func(ctx context.Context, id uuid.UUID) (*transaction.OrderTransaction, error) {
			return nil, errors.New("connection reset")
		}
		return domainErrors.ErrTransactionAlreadyFinished
	}

	_, err := f.orchestrator.FinishTransactionWithCard(context.Background(), finishRequest(t, tx.ID))

	assert.ErrorIs(t, err, domainErrors.ErrTransactionAlreadyFinished)
	reports := f.reconciler.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, checkout.ReasonLostFinishRace, reports[0].Reason)
	assert.Empty(t, reports[0].LocalStatus)
}

func TestMapGatewayStatus(t *testing.T) {
	assert.Equal(t, status.Approved, checkout.MapGatewayStatus(payment.GatewayApproved))
	assert.Equal(t, status.Declined, checkout.MapGatewayStatus(payment.GatewayDeclined))
	assert.Equal(t, status.Voided, checkout.MapGatewayStatus(payment.GatewayVoided))
	assert.Equal(t, status.Error, checkout.MapGatewayStatus(payment.GatewayError))
	assert.Equal(t, status.Error, checkout.MapGatewayStatus(payment.GatewayPending))
}
