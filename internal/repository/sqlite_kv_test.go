package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/multitimer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVStore_PutGetOverwrite(t *testing.T) {
	kv := NewSQLiteKVStore(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "a", "1"))
	require.NoError(t, kv.Put(ctx, "a", "2"))

	v, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestKVStore_GetMissing(t *testing.T) {
	kv := NewSQLiteKVStore(testutil.NewTestDB(t))

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKVStore_DeleteAndKeys(t *testing.T) {
	kv := NewSQLiteKVStore(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "timers.corrupt.1", "x"))
	require.NoError(t, kv.Put(ctx, "timers.corrupt.2", "y"))
	require.NoError(t, kv.Put(ctx, "other", "z"))

	keys, err := kv.Keys(ctx, "timers.corrupt.")
	require.NoError(t, err)
	assert.Equal(t, []string{"timers.corrupt.1", "timers.corrupt.2"}, keys)

	require.NoError(t, kv.Delete(ctx, "timers.corrupt.1"))
	require.NoError(t, kv.Delete(ctx, "never-existed"))
	keys, err = kv.Keys(ctx, "timers.corrupt.")
	require.NoError(t, err)
	assert.Equal(t, []string{"timers.corrupt.2"}, keys)
}
