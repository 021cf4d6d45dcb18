//go:build integration

package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/congo-pay/walletledger/internal/identity"
	"github.com/congo-pay/walletledger/internal/infra"
	"github.com/congo-pay/walletledger/internal/ledger"
	"github.com/congo-pay/walletledger/internal/storage"
	"github.com/congo-pay/walletledger/internal/wallet"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("ledger"),
		postgres.WithUsername("ledger"),
		postgres.WithPassword("ledger"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := infra.NewPostgresPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, infra.Migrate(ctx, pool))
	return pool
}

type failingLog struct {
	ledger.Log
}

func (failingLog) Append(context.Context, *ledger.Transaction) error {
	return errors.New("append refused")
}

func TestPostgresLedger(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()

	units := storage.NewPostgresManager(pool)
	wallets := wallet.NewPostgresStore(pool)
	txLog := ledger.NewPostgresLog(pool)
	users := identity.NewService(units, identity.NewPostgresRepository(pool), wallet.NewService(wallets, nil))
	engine := ledger.NewEngine(units, wallets, txLog)

	alice, err := users.Register(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	bob, err := users.Register(ctx, "Bob", "bob@example.com")
	require.NoError(t, err)

	balance := func(id int64) decimal.Decimal {
		b, err := wallets.Balance(ctx, id)
		require.NoError(t, err)
		return b
	}

	t.Run("scenarios", func(t *testing.T) {
		_, err := engine.Deposit(ctx, alice.ID, decimal.RequireFromString("1000.00"))
		require.NoError(t, err)
		_, err = engine.Withdraw(ctx, alice.ID, decimal.RequireFromString("2000"))
		require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
		_, err = engine.Withdraw(ctx, alice.ID, decimal.RequireFromString("100"))
		require.NoError(t, err)
		_, err = engine.Transfer(ctx, alice.ID, bob.ID, decimal.RequireFromString("300"))
		require.NoError(t, err)
		_, err = engine.Transfer(ctx, bob.ID, alice.ID, decimal.RequireFromString("200"))
		require.NoError(t, err)

		assert.True(t, balance(alice.ID).Equal(decimal.NewFromInt(800)))
		assert.True(t, balance(bob.ID).Equal(decimal.NewFromInt(100)))

		history, err := ledger.NewReader(txLog, users, nil).History(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, history, 4)
		assert.Equal(t, ledger.DirectionIncoming, *history[0].TransferType)
		assert.Equal(t, ledger.DirectionOutgoing, *history[1].TransferType)
		assert.Equal(t, "Bob", history[0].Counterparty.Name)
		assert.Equal(t, ledger.TypeWithdrawal, history[2].Type)
		assert.Equal(t, ledger.TypeDeposit, history[3].Type)
	})

	t.Run("failed append leaves no trace", func(t *testing.T) {
		before := balance(alice.ID)
		broken := ledger.NewEngine(units, wallets, failingLog{txLog})
		_, err := broken.Transfer(ctx, alice.ID, bob.ID, decimal.NewFromInt(50))
		require.ErrorIs(t, err, ledger.ErrPersistenceFailure)
		assert.True(t, balance(alice.ID).Equal(before))
	})

	t.Run("opposite transfers complete", func(t *testing.T) {
		start := balance(alice.ID).Add(balance(bob.ID))
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, _ = engine.Transfer(ctx, alice.ID, bob.ID, decimal.NewFromInt(1))
			}()
			go func() {
				defer wg.Done()
				_, _ = engine.Transfer(ctx, bob.ID, alice.ID, decimal.NewFromInt(1))
			}()
		}
		wg.Wait()
		assert.True(t, balance(alice.ID).Add(balance(bob.ID)).Equal(start))
	})

	t.Run("records are timestamped in apply order", func(t *testing.T) {
		// a unit that starts first but appends last must still sort newest
		txCtx, unit, err := units.Begin(ctx)
		require.NoError(t, err)
		defer unit.Rollback(ctx)

		from, err := wallets.LockAndRead(txCtx, alice.ID)
		require.NoError(t, err)
		defer wallets.Release(txCtx, from)

		time.Sleep(20 * time.Millisecond)
		deposit, err := engine.Deposit(ctx, bob.ID, decimal.NewFromInt(5))
		require.NoError(t, err)

		to, err := wallets.LockAndRead(txCtx, bob.ID)
		require.NoError(t, err)
		defer wallets.Release(txCtx, to)

		amount := decimal.NewFromInt(1)
		require.NoError(t, wallets.Write(txCtx, from, from.Balance.Sub(amount)))
		require.NoError(t, wallets.Write(txCtx, to, to.Balance.Add(amount)))
		transfer := &ledger.Transaction{SenderID: &alice.ID, ReceiverID: &bob.ID, Amount: amount, Type: ledger.TypeTransfer}
		require.NoError(t, txLog.Append(txCtx, transfer))
		require.NoError(t, unit.Commit(txCtx))

		assert.True(t, transfer.CreatedAt.After(deposit.CreatedAt))
		records, err := txLog.QueryByUser(ctx, bob.ID)
		require.NoError(t, err)
		require.NotEmpty(t, records)
		assert.Equal(t, transfer.ID, records[0].ID)
	})

	t.Run("delete cascades to wallet", func(t *testing.T) {
		carol, err := users.Register(ctx, "Carol", "carol@example.com")
		require.NoError(t, err)
		require.NoError(t, users.Delete(ctx, carol.ID))
		_, err = wallets.Balance(ctx, carol.ID)
		assert.ErrorIs(t, err, wallet.ErrWalletNotFound)
	})
}
