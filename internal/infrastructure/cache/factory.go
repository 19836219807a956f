package cache

import (
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewIdempotencyStore builds the store named by cfg.IdempotencyStore.
// The redis store needs a connected client.
func NewIdempotencyStore(cfg config.EventsConfig, client *redis.Client, logger *zap.Logger) (shared.IdempotencyStore, error) {
	switch cfg.IdempotencyStore {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis idempotency store requires a redis client")
		}
		logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, ""), nil
	case "memory", "":
		logger.Warn("using in-memory idempotency store; duplicates are only detected within this process")
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency store %q", cfg.IdempotencyStore)
	}
}
