package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errMissingClient = errors.New("cache: redis client is required")

// commands is the subset of Redis commands the store issues. *redis.Client
// satisfies it; tests substitute an in-memory fake.
type commands interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Keys(ctx context.Context, pattern string) *redis.StringSliceCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// StoreConfig configures the key-prefixed cache store.
type StoreConfig struct {
	Client    commands
	KeyPrefix string
	Logger    *zap.Logger
}

// Store is a best-effort JSON cache over Redis. Every operation swallows
// transport and serialization failures and reports a neutral result: a miss,
// a false success flag, or a zero count. Domain errors never originate here.
type Store struct {
	client commands
	prefix string
	logger *zap.Logger
}

// NewStore constructs a Store. The key prefix namespaces every key so
// unrelated tenants of the same Redis instance cannot collide.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Client == nil {
		return nil, errMissingClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: cfg.Client,
		prefix: cfg.KeyPrefix,
		logger: logger,
	}, nil
}

// KeyPrefix returns the configured namespace prefix.
func (s *Store) KeyPrefix() string {
	return s.prefix
}

func (s *Store) key(suffix string) string {
	if s.prefix == "" {
		return suffix
	}
	return s.prefix + ":" + suffix
}

// Get loads and decodes the value at key into dest. It reports false on a
// miss, on a decode failure, and when Redis is unreachable.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	payload, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		s.logger.Warn("cache entry undecodable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set encodes value as JSON and stores it under key with the given TTL.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) bool {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache value not serializable", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.client.SetEx(ctx, s.key(key), payload, ttl).Err(); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes the entry at key.
func (s *Store) Delete(ctx context.Context, key string) bool {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Exists reports whether an entry is present at key.
func (s *Store) Exists(ctx context.Context, key string) bool {
	count, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		s.logger.Warn("cache exists failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return count > 0
}

// ClearPattern deletes every key matching the glob pattern (scoped under the
// prefix) in one batch and returns the number of keys removed.
func (s *Store) ClearPattern(ctx context.Context, pattern string) int {
	keys, err := s.client.Keys(ctx, s.key(pattern)).Result()
	if err != nil {
		s.logger.Warn("cache pattern scan failed", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	cleared, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.logger.Warn("cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	return int(cleared)
}

// Ping probes the underlying cache service. Unlike the data operations this
// surfaces the error, so health endpoints can report cache availability.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
