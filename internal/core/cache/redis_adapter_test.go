package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) (*RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter, mr
}

func TestRedisAdapter_SetAndGet(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "key1", []byte("value1"), 0))

	val, err := adapter.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)
}

func TestRedisAdapter_GetMissingKey(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	_, err := adapter.Get(context.Background(), "nosuch")

	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestRedisAdapter_SetWithTTL(t *testing.T) {
	adapter, mr := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "key1", []byte("value1"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := adapter.Get(ctx, "key1")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestRedisAdapter_Delete(t *testing.T) {
	adapter, _ := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, adapter.Set(ctx, "key1", []byte("value1"), 0))
	require.NoError(t, adapter.Delete(ctx, "key1"))

	_, err := adapter.Get(ctx, "key1")
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestRedisAdapter_Ping(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	assert.NoError(t, adapter.Ping(context.Background()))
}

func TestRedisAdapter_InvalidURL(t *testing.T) {
	_, err := NewRedisAdapter("not-a-url")

	assert.Error(t, err)
}
