package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cassiomorais/checkout/internal/domain/delivery"
	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/status"
	"github.com/cassiomorais/checkout/internal/domain/transaction"
	"github.com/cassiomorais/checkout/internal/testutil"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// startPostgres runs a throwaway database with every migration applied.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("checkout"),
		tcpostgres.WithUsername("checkout"),
		tcpostgres.WithPassword("checkout"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dir, err := filepath.Abs("migrations")
	require.NoError(t, err)
	m, err := migrate.New("file://"+dir, dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// seedPending stores a product with the given stock and one PENDING
// transaction for it.
func seedPending(t *testing.T, pool *pgxpool.Pool, stock int) *transaction.OrderTransaction {
	t.Helper()
	ctx := context.Background()

	p := testutil.NewTestProduct(1000, stock)
	require.NoError(t, NewProductRepository(pool, nil).Create(ctx, p))

	tx := testutil.NewTestTransaction(p, 1, 15000, status.Pending)
	tx.Customer.ID = uuid.Nil
	tx.Customer.Email = uuid.NewString() + "@example.com"
	c, err := NewCustomerRepository(pool).Save(ctx, &tx.Customer)
	require.NoError(t, err)
	d, err := NewDeliveryRepository(pool, delivery.NewFeePolicy(15000, nil)).Save(ctx, &tx.Delivery)
	require.NoError(t, err)
	pending, err := NewStatusRepository(pool).FindByName(ctx, status.Pending)
	require.NoError(t, err)

	tx.Customer, tx.Delivery, tx.Status = *c, *d, pending
	require.NoError(t, NewTransactionRepository(pool).Create(ctx, tx))
	return tx
}

func finishedCopy(t *testing.T, repo *TransactionRepository, id uuid.UUID, name status.Name, gatewayID string) *transaction.OrderTransaction {
	t.Helper()
	ctx := context.Background()
	loaded, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	next, err := NewStatusRepository(repo.pool).FindByName(ctx, name)
	require.NoError(t, err)
	require.NoError(t, loaded.Finish(gatewayID, next))
	return loaded
}

func TestTransactionRepository_UpdateIfPending(t *testing.T) {
	pool := startPostgres(t)
	repo := NewTransactionRepository(pool)
	ctx := context.Background()

	t.Run("first finish wins and the second is rejected", func(t *testing.T) {
		tx := seedPending(t, pool, 5)
		winner := finishedCopy(t, repo, tx.ID, status.Approved, "gw-winner")
		loser := finishedCopy(t, repo, tx.ID, status.Declined, "gw-loser")

		require.NoError(t, repo.UpdateIfPending(ctx, winner))
		err := repo.UpdateIfPending(ctx, loser)

		assert.ErrorIs(t, err, domainErrors.ErrTransactionAlreadyFinished)
		stored, err := repo.GetByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, status.Approved, stored.Status.Name)
		require.NotNil(t, stored.GatewayTransactionID)
		assert.Equal(t, "gw-winner", *stored.GatewayTransactionID)
	})

	t.Run("concurrent finishes store exactly one outcome", func(t *testing.T) {
		tx := seedPending(t, pool, 5)
		const callers = 8
		copies := make([]*transaction.OrderTransaction, callers)
		for i := range copies {
			copies[i] = finishedCopy(t, repo, tx.ID, status.Approved, uuid.NewString())
		}

		var wg sync.WaitGroup
		errs := make([]error, callers)
		for i := range copies {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.UpdateIfPending(ctx, copies[i])
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, domainErrors.ErrTransactionAlreadyFinished)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("missing row", func(t *testing.T) {
		ghost := testutil.NewTestTransaction(testutil.NewTestProduct(1000, 1), 1, 0, status.Approved)

		err := repo.UpdateIfPending(ctx, ghost)

		assert.ErrorIs(t, err, domainErrors.ErrTransactionNotFound)
	})
}

func TestProductRepository_DecrementStockIfAvailable(t *testing.T) {
	pool := startPostgres(t)
	repo := NewProductRepository(pool, nil)
	ctx := context.Background()

	t.Run("takes the requested units", func(t *testing.T) {
		p := testutil.NewTestProduct(1000, 5)
		require.NoError(t, repo.Create(ctx, p))

		require.NoError(t, repo.DecrementStockIfAvailable(ctx, p.ID, 3))

		stored, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Stock)
	})

	t.Run("more than stock leaves the row unchanged", func(t *testing.T) {
		p := testutil.NewTestProduct(1000, 2)
		require.NoError(t, repo.Create(ctx, p))

		err := repo.DecrementStockIfAvailable(ctx, p.ID, 3)

		assert.ErrorIs(t, err, domainErrors.ErrInsufficientStock)
		stored, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Stock)
	})

	t.Run("unknown product", func(t *testing.T) {
		err := repo.DecrementStockIfAvailable(ctx, uuid.New(), 1)
		assert.ErrorIs(t, err, domainErrors.ErrProductNotFound)
	})

	t.Run("concurrent buyers never oversell", func(t *testing.T) {
		p := testutil.NewTestProduct(1000, 5)
		require.NoError(t, repo.Create(ctx, p))

		const buyers = 12
		var wg sync.WaitGroup
		errs := make([]error, buyers)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.DecrementStockIfAvailable(ctx, p.ID, 1)
			}(i)
		}
		wg.Wait()

		sold := 0
		for _, err := range errs {
			switch {
			case err == nil:
				sold++
			case errors.Is(err, domainErrors.ErrInsufficientStock):
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 5, sold)
		stored, err := repo.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Zero(t, stored.Stock)
	})
}
