package cache

import (
	"context"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// startRedis runs a throwaway Redis container. Skipped with -short.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, config.RedisConfig{Host: host, Port: port.Int()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	t.Run("stock level cache round trip and invalidation", func(t *testing.T) {
		c := NewRedisStockLevelCache(client, time.Minute)
		product := uuid.New()

		miss, err := c.Get(ctx, product)
		require.NoError(t, err)
		assert.Nil(t, miss.Levels)
		assert.Zero(t, miss.Generation)

		levels := &inventoryapp.StockLevelsResponse{
			ProductID:              product,
			TotalQuantity:          42,
			TotalReservedQuantity:  2,
			TotalAvailableQuantity: 40,
			Warehouses: []inventoryapp.WarehouseLevel{{
				WarehouseID: uuid.New(), Quantity: 42, ReservedQuantity: 2, AvailableQuantity: 40,
				StockStatus: inventory.StockStatusInStock,
			}},
		}
		require.NoError(t, c.Set(ctx, levels, miss.Generation))

		hit, err := c.Get(ctx, product)
		require.NoError(t, err)
		require.NotNil(t, hit.Levels)
		assert.Equal(t, levels, hit.Levels)

		ttl, err := client.TTL(ctx, stockLevelKey(product)).Result()
		require.NoError(t, err)
		assert.True(t, ttl > 0 && ttl <= time.Minute)

		require.NoError(t, c.Invalidate(ctx, product, uuid.New()))
		after, err := c.Get(ctx, product)
		require.NoError(t, err)
		assert.Nil(t, after.Levels)
		assert.Equal(t, int64(1), after.Generation)

		require.NoError(t, c.Invalidate(ctx))
	})

	t.Run("fill from a superseded generation is dropped", func(t *testing.T) {
		c := NewRedisStockLevelCache(client, time.Minute)
		product := uuid.New()

		miss, err := c.Get(ctx, product)
		require.NoError(t, err)
		require.Nil(t, miss.Levels)

		// a commit lands between the reader's miss and its fill
		require.NoError(t, c.Invalidate(ctx, product))

		stale := &inventoryapp.StockLevelsResponse{ProductID: product, TotalQuantity: 7}
		require.NoError(t, c.Set(ctx, stale, miss.Generation))

		got, err := c.Get(ctx, product)
		require.NoError(t, err)
		assert.Nil(t, got.Levels)

		fresh := &inventoryapp.StockLevelsResponse{ProductID: product, TotalQuantity: 9}
		require.NoError(t, c.Set(ctx, fresh, got.Generation))
		got, err = c.Get(ctx, product)
		require.NoError(t, err)
		require.NotNil(t, got.Levels)
		assert.Equal(t, int64(9), got.Levels.TotalQuantity)
	})

	t.Run("corrupt entry is an error", func(t *testing.T) {
		c := NewRedisStockLevelCache(client, time.Minute)
		product := uuid.New()
		require.NoError(t, client.Set(ctx, stockLevelKey(product), "{not json", time.Minute).Err())

		got, err := c.Get(ctx, product)
		assert.Error(t, err)
		assert.Nil(t, got.Levels)
	})

	t.Run("idempotency store claims once", func(t *testing.T) {
		s := NewRedisIdempotencyStore(client, "")
		key := "notifications:" + uuid.NewString()

		fresh, err := s.MarkProcessed(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = s.MarkProcessed(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.False(t, fresh)

		processed, err := s.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.True(t, processed)

		exists, err := client.Exists(ctx, defaultIdempotencyPrefix+key).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)

		require.NoError(t, s.Close())
		assert.NoError(t, client.Ping(ctx).Err(), "closing the store leaves the shared client open")
	})
}

func TestRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisClient(ctx, config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}

func TestNewIdempotencyStore(t *testing.T) {
	store, err := NewIdempotencyStore(config.EventsConfig{IdempotencyStore: "memory"}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	require.NoError(t, store.Close())

	_, err = NewIdempotencyStore(config.EventsConfig{IdempotencyStore: "redis"}, nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewIdempotencyStore(config.EventsConfig{IdempotencyStore: "etcd"}, nil, zap.NewNop())
	assert.Error(t, err)

	store, err = NewIdempotencyStore(config.EventsConfig{IdempotencyStore: "redis"}, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &RedisIdempotencyStore{}, store)
}
