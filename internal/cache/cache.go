// Package cache wraps go-redis/v9 with graceful degradation, grounded on
// the teacher's internal/cache/cache_service.go circuit-breaker-over-Redis
// shape: a health flag flips on consecutive failures, a call made while
// unhealthy starts a background recovery ping once the check interval has
// passed since the last successful check, and callers fall back to the Postgres
// repository when the cache reports unhealthy. Reworked from the teacher's
// per-user settings keys onto this engine's sync-cursor, rate-limit, and
// confluence-score memoization uses (SPEC_FULL DOMAIN STACK).
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tradecore/engine/config"
)

// Cache wraps a Redis client with a simple failure-count circuit breaker.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// New dials Redis and returns a Cache; a failed initial ping starts the
// cache in degraded mode rather than failing construction, matching the
// teacher's "return service in degraded mode" behavior.
func New(cfg config.RedisConfig, logger zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	c := &Cache{client: client, logger: logger, maxFailures: 3, checkInterval: 30 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("initial redis connection failed, starting in degraded mode")
		return c
	}
	c.healthy = true
	c.lastCheck = time.Now()
	return c
}

// IsHealthy reports whether the circuit breaker currently considers Redis
// available.
func (c *Cache) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

func (c *Cache) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	if c.failureCount >= c.maxFailures && c.healthy {
		c.logger.Warn().Int("failures", c.failureCount).Msg("cache circuit breaker open")
	}
	if c.failureCount >= c.maxFailures {
		c.healthy = false
	}
}

func (c *Cache) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.healthy {
		c.logger.Info().Msg("cache circuit breaker closed, redis recovered")
	}
	c.healthy = true
	c.failureCount = 0
	c.lastCheck = time.Now()
}

func (c *Cache) maybeRecover(ctx context.Context) {
	c.mu.RLock()
	shouldCheck := !c.healthy && time.Since(c.lastCheck) >= c.checkInterval
	c.mu.RUnlock()
	if !shouldCheck {
		return
	}
	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.client.Ping(pingCtx).Err(); err == nil {
			c.recordSuccess()
		}
	}()
}

// ErrUnavailable is returned by every operation while the circuit breaker
// is open.
var ErrUnavailable = fmt.Errorf("cache: redis unavailable (circuit breaker open)")

// Get returns the raw string value for key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.maybeRecover(ctx)
	if !c.IsHealthy() {
		return "", ErrUnavailable
	}
	v, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", err
	}
	if err != nil {
		c.recordFailure()
		return "", fmt.Errorf("cache: get: %w", err)
	}
	c.recordSuccess()
	return v, nil
}

// Set stores value (marshaled to JSON unless it is already a string) under
// key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.maybeRecover(ctx)
	if !c.IsHealthy() {
		return ErrUnavailable
	}
	data, ok := value.(string)
	if !ok {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("cache: marshal: %w", err)
		}
		data = string(raw)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.recordFailure()
		return fmt.Errorf("cache: set: %w", err)
	}
	c.recordSuccess()
	return nil
}

// GetJSON unmarshals a cached JSON value into dest.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.maybeRecover(ctx)
	if !c.IsHealthy() {
		return ErrUnavailable
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.recordFailure()
		return fmt.Errorf("cache: delete: %w", err)
	}
	c.recordSuccess()
	return nil
}

// Incr atomically increments key and returns the new value, setting ttl on
// the first increment. Used to mirror the rate limiter's grant count.
func (c *Cache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	c.maybeRecover(ctx)
	if !c.IsHealthy() {
		return 0, ErrUnavailable
	}
	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		c.recordFailure()
		return 0, fmt.Errorf("cache: incr: %w", err)
	}
	if val == 1 {
		c.client.Expire(ctx, key, ttl)
	}
	c.recordSuccess()
	return val, nil
}

// Close closes the underlying Redis connection.
func (c *Cache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
