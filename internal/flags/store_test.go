package flags

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = client.FlushDB(ctx).Err()
	_ = client.Close()
}

func TestStore_Upsert(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	flag, err := store.Upsert(ctx, "test.switch", true)
	assert.NoError(t, err)
	assert.NotNil(t, flag)
	assert.Equal(t, "test.switch", flag.Key)
	assert.True(t, flag.Value)
	assert.NotZero(t, flag.UpdatedAt)

	retrieved, err := store.Get(ctx, "test.switch")
	assert.NoError(t, err)
	assert.Equal(t, flag.Key, retrieved.Key)
	assert.Equal(t, flag.Value, retrieved.Value)

	// Updating flips the value and refreshes the timestamp.
	time.Sleep(time.Millisecond)
	flag2, err := store.Upsert(ctx, "test.switch", false)
	assert.NoError(t, err)
	assert.True(t, flag2.UpdatedAt.After(flag.UpdatedAt))

	retrieved, err = store.Get(ctx, "test.switch")
	assert.NoError(t, err)
	assert.False(t, retrieved.Value)
}

func TestStore_Get_NotFound(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "missing.switch")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	flags, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, flags)

	for i := 0; i < 3; i++ {
		_, err := store.Upsert(ctx, fmt.Sprintf("switch.%d", i), i%2 == 0)
		require.NoError(t, err)
	}

	flags, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, flags, 3)
}

func TestStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Upsert(ctx, "doomed.switch", true)
	require.NoError(t, err)

	err = store.Delete(ctx, "doomed.switch")
	assert.NoError(t, err)

	_, err = store.Get(ctx, "doomed.switch")
	assert.ErrorIs(t, err, ErrNotFound)

	flags, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, flags)
}

func TestStore_TradingEnabled(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	// Absent switch reads as enabled.
	assert.True(t, store.TradingEnabled(ctx))

	_, err = store.Upsert(ctx, KeyTradingEnabled, false)
	require.NoError(t, err)
	assert.False(t, store.TradingEnabled(ctx))

	_, err = store.Upsert(ctx, KeyTradingEnabled, true)
	require.NoError(t, err)
	assert.True(t, store.TradingEnabled(ctx))
}

func TestValidateKey(t *testing.T) {
	valid := []string{"trading.enabled", "a", "A-b_c.9", "x1.y2-z3"}
	for _, key := range valid {
		assert.NoError(t, ValidateKey(key), key)
	}

	invalid := []string{"", "has space", "emoji🔥", "slash/bad", "colon:bad"}
	for _, key := range invalid {
		assert.Error(t, ValidateKey(key), key)
	}

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateKey(string(long)))
}

func TestNewStore_NilClient(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}
