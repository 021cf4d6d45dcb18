package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletledger/internal/logging"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return New(client, time.Hour, logging.Discard()), mr
}

func counting(value any, loads *int) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		*loads++
		return value, nil
	}
}

func TestFetchLoadsOnceThenServesFromCache(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	loads := 0
	load := counting(decimal.RequireFromString("1000.50"), &loads)

	var first, second decimal.Decimal
	require.NoError(t, store.Fetch(ctx, BalanceKey(7), &first, load))
	require.NoError(t, store.Fetch(ctx, BalanceKey(7), &second, load))

	assert.Equal(t, 1, loads)
	assert.True(t, first.Equal(decimal.RequireFromString("1000.5")))
	assert.True(t, second.Equal(first))
	assert.True(t, mr.Exists(entryKey(BalanceKey(7), 0)))
	assert.Equal(t, time.Hour, mr.TTL(entryKey(BalanceKey(7), 0)))
}

func TestInvalidateForcesReload(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	loads := 0
	var out []string
	require.NoError(t, store.Fetch(ctx, HistoryKey(1), &out, counting([]string{"a"}, &loads)))
	require.NoError(t, store.InvalidateHistory(ctx, 1))
	require.NoError(t, store.Fetch(ctx, HistoryKey(1), &out, counting([]string{"a", "b"}, &loads)))

	assert.Equal(t, 2, loads)
	assert.Equal(t, []string{"a", "b"}, out)

	// balance and history generations are independent
	balanceLoads := 0
	var amount int
	require.NoError(t, store.Fetch(ctx, BalanceKey(1), &amount, counting(5, &balanceLoads)))
	require.NoError(t, store.InvalidateHistory(ctx, 1))
	require.NoError(t, store.Fetch(ctx, BalanceKey(1), &amount, counting(5, &balanceLoads)))
	assert.Equal(t, 1, balanceLoads)
}

func TestInvalidateDuringLoadDiscardsLateWrite(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	var stale decimal.Decimal
	err := store.Fetch(ctx, BalanceKey(4), &stale, func(ctx context.Context) (any, error) {
		// a commit lands between the read and the cache write
		require.NoError(t, store.InvalidateBalance(ctx, 4))
		return decimal.NewFromInt(10), nil
	})
	require.NoError(t, err)
	assert.True(t, stale.Equal(decimal.NewFromInt(10)))

	var fresh decimal.Decimal
	require.NoError(t, store.Fetch(ctx, BalanceKey(4), &fresh, func(context.Context) (any, error) {
		return decimal.NewFromInt(30), nil
	}))
	assert.True(t, fresh.Equal(decimal.NewFromInt(30)), "late write must not be served, got %s", fresh)
}

func TestFetchPropagatesLoadError(t *testing.T) {
	store, mr := setupStore(t)
	boom := errors.New("db down")

	var out decimal.Decimal
	err := store.Fetch(context.Background(), BalanceKey(3), &out, func(context.Context) (any, error) {
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(entryKey(BalanceKey(3), 0)))
}

func TestFetchDegradesWhenRedisUnavailable(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	var out []string
	err := store.Fetch(context.Background(), HistoryKey(2), &out, func(context.Context) (any, error) {
		return []string{"a", "b"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out)
	assert.Error(t, store.InvalidateHistory(context.Background(), 2))
}

func TestDisabledStore(t *testing.T) {
	store := Disabled()
	assert.False(t, store.Enabled())

	var out int
	require.NoError(t, store.Fetch(context.Background(), "k", &out, func(context.Context) (any, error) { return 5, nil }))
	assert.Equal(t, 5, out)
	assert.NoError(t, store.InvalidateBalance(context.Background(), 1))
	assert.NoError(t, store.Ping(context.Background()))
}
