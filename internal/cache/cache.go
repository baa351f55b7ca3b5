// Package cache invalidates derived cache entries after a unit of work commits.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"loved-api/internal/models"
)

// Keys of derived caches maintained by readers of the curation data
const (
	KeyMapperConsents               = "mapper-consents"
	KeySubmissionsMapperConsentSets = "submissions:mapper-consent-beatmapsets"
	KeySubmissionsMapperConsents    = "submissions:mapper-consents"
)

// SubmissionsReviewsKey is the reviews cache of one game mode
func SubmissionsReviewsKey(mode models.GameMode) string {
	return fmt.Sprintf("submissions:%d:reviews", mode)
}

// Invalidator drops cache entries. Invalidation is best effort: failures are
// logged and never reported to the caller.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// Config configures the Redis connection
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	KeyPrefix string
	Timeout   time.Duration
}

// RedisInvalidator deletes keys from Redis
type RedisInvalidator struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisInvalidator connects to Redis and verifies the connection with a ping
func NewRedisInvalidator(ctx context.Context, cfg Config) (*RedisInvalidator, error) {
	addrs := make([]string, 0, len(cfg.Addrs))
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis addr is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		Username:     strings.TrimSpace(cfg.Username),
		Password:     cfg.Password,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisInvalidator{
		client:  client,
		prefix:  cfg.KeyPrefix,
		timeout: timeout,
		logger:  slog.Default().With("component", "cache"),
	}, nil
}

// Invalidate deletes keys, logging failures
func (r *RedisInvalidator) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = r.prefix + key
	}

	// The request context may already be done once the response is written
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	// One DEL per key: a cluster rejects multi-key commands spanning hash slots
	_, err := r.client.Pipelined(delCtx, func(pipe redis.Pipeliner) error {
		for _, key := range prefixed {
			pipe.Del(delCtx, key)
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("Failed to invalidate cache", "keys", keys, "error", err)
		return
	}
	r.logger.Debug("Invalidated cache", "keys", keys)
}

// Health pings Redis
func (r *RedisInvalidator) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisInvalidator) Close() error {
	return r.client.Close()
}

// Noop discards invalidations. It is used when no Redis is configured.
type Noop struct{}

// Invalidate does nothing
func (Noop) Invalidate(context.Context, ...string) {}
