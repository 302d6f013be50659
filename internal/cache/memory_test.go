package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, time.Minute)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	buf := []byte("value")
	require.NoError(t, store.Set(ctx, "k", buf, time.Minute))
	buf[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "value", string(got))

	require.NoError(t, store.Delete(ctx, "k", "missing"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryStore_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, time.Minute)

	require.NoError(t, store.Set(ctx, "documents:1", []byte("a"), 0))
	require.NoError(t, store.Set(ctx, "documents:2", []byte("b"), 0))
	require.NoError(t, store.Set(ctx, "other:1", []byte("c"), 0))

	require.NoError(t, store.DeleteByPrefix(ctx, "documents:"))

	assert.Equal(t, 1, store.Len())
	_, err := store.Get(ctx, "other:1")
	assert.NoError(t, err)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(16, 20*time.Millisecond)

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	assert.Eventually(t, func() bool {
		_, err := store.Get(ctx, "k")
		return err == ErrCacheMiss
	}, time.Second, 10*time.Millisecond)
}
