package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupKV(t *testing.T) *KV {
	t.Helper()
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewKV(database)
}

func TestKV_GetMissing(t *testing.T) {
	kv := setupKV(t)

	value, ok, err := kv.Get(context.Background(), "bills")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, value)
}

func TestKV_SetGetOverwrite(t *testing.T) {
	kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "bills", `[]`))
	require.NoError(t, kv.Set(ctx, "bills", `[{"id":1}]`))

	value, ok, err := kv.Get(ctx, "bills")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[{"id":1}]`, value)
}

func TestKV_DeleteAndKeys(t *testing.T) {
	kv := setupKV(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "vehicles", `[]`))
	require.NoError(t, kv.Set(ctx, "bills", `[]`))

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"bills", "vehicles"}, keys)

	require.NoError(t, kv.Delete(ctx, "bills"))
	require.NoError(t, kv.Delete(ctx, "never-existed"))

	keys, err = kv.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"vehicles"}, keys)
}

func TestKV_CancelledContext(t *testing.T) {
	kv := setupKV(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kv.Set(ctx, "bills", `[]`)
	require.Error(t, err)
}
