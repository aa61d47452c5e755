package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usmanhaider/raydium-swap-engine/internal/constants"
	"github.com/usmanhaider/raydium-swap-engine/internal/models"
)

func setupTestCache(t *testing.T) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(ctx).Err())

	cache := NewRedisCacheFromClient(client, nil)
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = cache.Close()
	})
	return cache
}

func testEvent(i int) *models.OrderEvent {
	return &models.OrderEvent{
		OrderID:      fmt.Sprintf("ord_%d", i),
		BundleID:     fmt.Sprintf("bundle_%d", i),
		Timestamp:    time.Now().UTC(),
		PoolID:       "58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2",
		Direction:    "buy",
		TokenMint:    "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
		AmountIn:     1_000_000_000,
		AmountOut:    32_258_064_516,
		MinAmountOut: 30_645_161_290,
		Attempts:     1,
		Success:      true,
	}
}

func TestRecentOrders_NewestFirst(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.AddRecentOrder(ctx, testEvent(i)))
	}

	orders, err := cache.GetRecentOrders(ctx, 3)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "ord_4", orders[0].OrderID)
	assert.Equal(t, "ord_2", orders[2].OrderID)
}

func TestRecentOrders_CapEnforced(t *testing.T) {
	cache := setupTestCache(t)
	ctx := context.Background()

	for i := 0; i < constants.MaxRecentOrders+10; i++ {
		require.NoError(t, cache.AddRecentOrder(ctx, testEvent(i)))
	}

	orders, err := cache.GetRecentOrders(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, orders, constants.MaxRecentOrders)

	// The oldest events fell off the end of the list.
	assert.Equal(t, fmt.Sprintf("ord_%d", constants.MaxRecentOrders+9), orders[0].OrderID)
}

func TestPublishAndSubscribe(t *testing.T) {
	cache := setupTestCache(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *models.OrderEvent, 1)
	subDone := make(chan error, 1)
	go func() {
		subDone <- cache.SubscribeOrders(ctx, func(ev *models.OrderEvent) {
			select {
			case received <- ev:
			default:
			}
		})
	}()

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, cache.PublishOrder(ctx, testEvent(42)))

	select {
	case ev := <-received:
		assert.Equal(t, "ord_42", ev.OrderID)
		assert.True(t, ev.Success)
	case <-ctx.Done():
		t.Fatal("timed out waiting for published order event")
	}

	cancel()
	assert.ErrorIs(t, <-subDone, context.Canceled)
}
