package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := NewRedisClient(context.Background(), addr)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestIdempotencyStore_AcquireOnce(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, time.Minute)
	client.Del(ctx, idempotencyKeyPrefix+"test-key")

	ok, err := store.Acquire(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "test-key")
	require.NoError(t, err)
	assert.False(t, ok, "second acquire of the same key must fail")

	ttl := client.TTL(ctx, idempotencyKeyPrefix+"test-key").Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestIdempotencyStore_ReleaseAllowsRetry(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, 0)
	client.Del(ctx, idempotencyKeyPrefix+"retry-key")

	ok, err := store.Acquire(ctx, "retry-key")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Release(ctx, "retry-key"))

	ok, err = store.Acquire(ctx, "retry-key")
	require.NoError(t, err)
	assert.True(t, ok)
	client.Del(ctx, idempotencyKeyPrefix+"retry-key")
}

func TestPublisher_DeliversToSubscriber(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "test-orders")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	receivers, err := NewPublisher(client).Publish(ctx, "test-orders", []byte(`{"order_id":1}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), receivers)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":1}`, msg.Payload)
}
