package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	stockLevelKeyPrefix        = "stockledger:levels:"
	stockLevelGenerationPrefix = "stockledger:levels:gen:"
)

// errStaleFill aborts a Set whose generation was superseded
var errStaleFill = errors.New("stock level generation moved")

// RedisStockLevelCache stores per-product stock level aggregates as JSON with a TTL.
// Each product has a generation counter that Invalidate increments. Set runs
// under WATCH on that counter and writes only if it still holds the generation
// seen by the preceding Get, so a reader racing a commit cannot repopulate the
// entry with a pre-commit snapshot. The TTL bounds staleness only when an
// invalidation event is never delivered.
type RedisStockLevelCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStockLevelCache creates a cache over client
func NewRedisStockLevelCache(client *redis.Client, ttl time.Duration) *RedisStockLevelCache {
	return &RedisStockLevelCache{client: client, ttl: ttl}
}

func stockLevelKey(productID uuid.UUID) string {
	return stockLevelKeyPrefix + productID.String()
}

func stockLevelGenerationKey(productID uuid.UUID) string {
	return stockLevelGenerationPrefix + productID.String()
}

// Get returns the cached levels for productID, if any, with the current generation
func (c *RedisStockLevelCache) Get(ctx context.Context, productID uuid.UUID) (inventoryapp.StockLevelLookup, error) {
	var gen, value *redis.StringCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		gen = pipe.Get(ctx, stockLevelGenerationKey(productID))
		value = pipe.Get(ctx, stockLevelKey(productID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return inventoryapp.StockLevelLookup{}, fmt.Errorf("failed to read stock levels: %w", err)
	}

	var lookup inventoryapp.StockLevelLookup
	if lookup.Generation, err = generationOf(gen); err != nil {
		return inventoryapp.StockLevelLookup{}, err
	}

	raw, err := value.Bytes()
	if errors.Is(err, redis.Nil) {
		return lookup, nil
	}
	if err != nil {
		return inventoryapp.StockLevelLookup{}, fmt.Errorf("failed to read stock levels: %w", err)
	}

	var levels inventoryapp.StockLevelsResponse
	if err := json.Unmarshal(raw, &levels); err != nil {
		return inventoryapp.StockLevelLookup{}, fmt.Errorf("failed to decode cached stock levels: %w", err)
	}
	lookup.Levels = &levels
	return lookup, nil
}

func generationOf(cmd *redis.StringCmd) (int64, error) {
	n, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock level generation: %w", err)
	}
	return n, nil
}

// Set stores levels under its product ID if generation is still current.
// A superseded generation is not an error; the fill is simply dropped.
func (c *RedisStockLevelCache) Set(ctx context.Context, levels *inventoryapp.StockLevelsResponse, generation int64) error {
	raw, err := json.Marshal(levels)
	if err != nil {
		return fmt.Errorf("failed to encode stock levels: %w", err)
	}

	genKey := stockLevelGenerationKey(levels.ProductID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generationOf(tx.Get(ctx, genKey))
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, stockLevelKey(levels.ProductID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil, errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("failed to write stock levels: %w", err)
	}
}

// Invalidate advances the generation of productIDs and drops their entries
func (c *RedisStockLevelCache) Invalidate(ctx context.Context, productIDs ...uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range productIDs {
			pipe.Incr(ctx, stockLevelGenerationKey(id))
			pipe.Del(ctx, stockLevelKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate stock levels: %w", err)
	}
	return nil
}

var _ inventoryapp.StockLevelCache = (*RedisStockLevelCache)(nil)
