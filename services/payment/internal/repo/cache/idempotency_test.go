package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyKey(t *testing.T) {
	assert.Equal(t, "idempotency:payment:t1:abc-123", IdempotencyKey("t1", "abc-123"))
}

func TestIdempotencyStore_WithoutRedis(t *testing.T) {
	store := NewIdempotencyStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Remember(ctx, "t1", "k", map[string]string{"id": "p1"}))

	var dst map[string]string
	found, err := store.Lookup(ctx, "t1", "k", &dst)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIdempotencyStore_WithoutRedisAlwaysReserves(t *testing.T) {
	store := NewIdempotencyStore(nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		held, err := store.Reserve(ctx, "t1", "k")
		require.NoError(t, err)
		assert.True(t, held)
	}
	assert.NoError(t, store.Release(ctx, "t1", "k"))
}
