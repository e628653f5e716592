package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskboard/pkg/config"
	"taskboard/pkg/logger"
)

const (
	lockTTL        = 10 * time.Second
	lockRetryDelay = 50 * time.Millisecond
	lockRetries    = 40
)

// ErrLockTimeout รอ lock ของ key นานเกิน lockRetries รอบ
var ErrLockTimeout = errors.New("redis: timed out waiting for cache fill")

// Client wraps the Redis client
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client from config
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opt.DB = cfg.DB
	}

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	logger.Info("Redis connected", "addr", opt.Addr, "db", opt.DB)
	return &Client{rdb: rdb}, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Incr bumps a counter key (used for cache generations)
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

// GetInt returns 0 when the key does not exist
func (c *Client) GetInt(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// ═══════════════════════════════════════════════════════════════════════════════
// Distributed Locking (Singleflight Pattern)
// ═══════════════════════════════════════════════════════════════════════════════

// AcquireLock returns true if the lock was acquired, false if held elsewhere
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, lockKey, "1", ttl).Result()
}

func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.Del(ctx, lockKey)
}

// ═══════════════════════════════════════════════════════════════════════════════
// JSON Cache Helpers
// ═══════════════════════════════════════════════════════════════════════════════

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, expiration).Err()
}

// GetJSON returns redis.Nil if the key does not exist
func (c *Client) GetJSON(ctx context.Context, key string, target interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, target)
}

// GetOrSet reads key into target, or fills it from getter. Only one caller
// runs getter per key at a time; the rest poll until the value appears.
func (c *Client) GetOrSet(ctx context.Context, key string, target interface{}, ttl time.Duration, getter func() (interface{}, error)) error {
	lockKey := "lock:" + key
	for attempt := 0; attempt < lockRetries; attempt++ {
		// 1. cache hit
		err := c.GetJSON(ctx, key, target)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}

		// 2. miss - คนได้ lock เป็นคนโหลด
		locked, err := c.AcquireLock(ctx, lockKey, lockTTL)
		if err != nil {
			return err
		}
		if locked {
			return c.fill(ctx, key, lockKey, target, ttl, getter)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("%w: %s", ErrLockTimeout, key)
}

func (c *Client) fill(ctx context.Context, key, lockKey string, target interface{}, ttl time.Duration, getter func() (interface{}, error)) error {
	defer func() {
		if err := c.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
			logger.Warn("Failed to release cache lock", "key", lockKey, "error", err)
		}
	}()

	// double-check: อาจมีคนเติมไปแล้วก่อนเราได้ lock
	if err := c.GetJSON(ctx, key, target); err == nil {
		return nil
	}

	result, err := getter()
	if err != nil {
		return err
	}

	data, err := sonic.Marshal(result)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn("Failed to cache result", "key", key, "error", err)
	}
	return sonic.Unmarshal(data, target)
}
