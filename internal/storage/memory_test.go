package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUnitRollbackRunsUndoInReverse(t *testing.T) {
	ctx, unit, err := NewMemoryManager().Begin(context.Background())
	require.NoError(t, err)

	mu := MemoryUnitFrom(ctx)
	require.NotNil(t, mu)

	var order []int
	committed := false
	mu.OnRollback(func() { order = append(order, 1) })
	mu.OnRollback(func() { order = append(order, 2) })
	mu.OnCommit(func() { committed = true })

	require.NoError(t, unit.Rollback(ctx))
	assert.Equal(t, []int{2, 1}, order)
	assert.False(t, committed)

	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)
	require.NoError(t, unit.Rollback(ctx))
	assert.Equal(t, []int{2, 1}, order, "second rollback must be a no-op")
}

func TestMemoryUnitCommitIgnoresLaterRollback(t *testing.T) {
	ctx, unit, err := NewMemoryManager().Begin(context.Background())
	require.NoError(t, err)

	mu := MemoryUnitFrom(ctx)
	published, undone := 0, 0
	mu.OnCommit(func() { published++ })
	mu.OnRollback(func() { undone++ })

	require.NoError(t, unit.Commit(ctx))
	require.NoError(t, unit.Rollback(ctx))
	require.NoError(t, unit.Commit(ctx))

	assert.Equal(t, 1, published)
	assert.Equal(t, 0, undone)
}

func TestWithinRollsBackOnError(t *testing.T) {
	boom := errors.New("boom")
	undone := false

	err := Within(context.Background(), NewMemoryManager(), func(ctx context.Context) error {
		MemoryUnitFrom(ctx).OnRollback(func() { undone = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.True(t, undone)
}

func TestMemoryUnitFromPlainContext(t *testing.T) {
	assert.Nil(t, MemoryUnitFrom(context.Background()))
	assert.Nil(t, TxFrom(context.Background()))
}
