package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// ClientConfig describes how to reach the Redis instance backing the cache.
type ClientConfig struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// NewClient dials Redis with a bounded connection pool. The initial ping is
// advisory only: an unreachable cache is logged and the client is returned
// anyway, because every cache operation degrades to a miss on failure.
func NewClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) *redis.Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, continuing without warm cache",
			zap.String("address", cfg.Address),
			zap.Error(err))
	} else {
		logger.Info("redis connection established", zap.String("address", cfg.Address))
	}

	return client
}
