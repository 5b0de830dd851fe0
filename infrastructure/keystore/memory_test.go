package keystore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetNXClaimsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.SetNX(ctx, "dedupe:MSG1", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "dedupe:MSG1", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "dedupe:MSG1"))
	ok, _ = store.SetNX(ctx, "dedupe:MSG1", "1", time.Minute)
	assert.True(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "contact:51999", "c-1", time.Minute))
	val, ok, err := store.Get(ctx, "contact:51999")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c-1", val)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(ctx, "contact:51999")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.SetNX(ctx, "contact:51999", "c-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_SweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "a", "1", time.Second))
	now = now.Add(2 * sweepInterval)
	require.NoError(t, store.Set(ctx, "b", "2", time.Hour))

	assert.Len(t, store.entries, 1)
}
