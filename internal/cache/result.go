package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/voxkit/cleanscribe/internal/config"
	"github.com/voxkit/cleanscribe/internal/pipeline"
)

// ResultCache caches pipeline results in Redis. Keys include the current
// user-rule fingerprint, so a hot reload of user replacements never serves
// a result produced under the old rules.
type ResultCache struct {
	client *redis.Client
	config config.CacheConfig
	logger *zap.Logger
}

// Entry is one cached pipeline result.
type Entry struct {
	Output   string                `json:"output"`
	Language string                `json:"language"`
	CachedAt time.Time             `json:"cached_at"`
	Stages   []pipeline.StageTrace `json:"stages,omitempty"`
}

// New creates a Redis-backed result cache and verifies the connection.
func New(cfg config.CacheConfig, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("default_ttl", cfg.DefaultTTL))

	return &ResultCache{client: client, config: cfg, logger: logger}, nil
}

// Key derives the cache key for an input text under the given rule
// fingerprint.
func (c *ResultCache) Key(text string, fingerprint uint64) string {
	sum := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + strconv.FormatUint(fingerprint, 16) + ":" + hex.EncodeToString(sum[:])
}

// Get returns the cached entry for key, or nil on a miss. Lookup errors are
// logged and reported as misses; the cache never fails a request.
func (c *ResultCache) Get(ctx context.Context, key string) *Entry {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		c.logger.Warn("cache lookup failed", zap.Error(err))
		return nil
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.Warn("corrupted cache entry, deleting", zap.String("key", key))
		c.client.Del(ctx, key)
		return nil
	}
	return &entry
}

// Set stores a pipeline result under key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, res pipeline.Result) {
	entry := Entry{
		Output:   res.Output,
		Language: res.Language,
		CachedAt: time.Now(),
		Stages:   res.Stages,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("failed to marshal cache entry", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.config.DefaultTTL).Err(); err != nil {
		c.logger.Warn("cache store failed", zap.Error(err))
	}
}

// Close releases the Redis connection pool.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

// maskRedisURL hides credentials for logging.
func maskRedisURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "redis://***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
