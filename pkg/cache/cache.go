// Package cache provides caching functionality for the application
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/developer-mesh/task-manager/pkg/resilience"
)

// ErrNotFound is returned when a key is not found in the cache
var ErrNotFound = errors.New("key not found in cache")

// Cache interface defines caching operations
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Cache types selectable through RedisConfig.Type
const (
	TypeRedis  = "redis"
	TypeMemory = "memory"
)

// RedisConfig holds the cache settings. Type "memory" keeps entries in an
// in-process LRU instead of Redis and only uses MaxEntries and TTL.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Type         string        `mapstructure:"type"`
	MaxEntries   int           `mapstructure:"max_entries"`
	Address      string        `mapstructure:"address"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	TTL          time.Duration `mapstructure:"ttl"`

	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// NoOpCache is a cache implementation that does nothing.
// Used for graceful degradation when cache is unavailable.
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache
func NewNoOpCache() Cache {
	return &NoOpCache{}
}

// Get always returns cache miss
func (n *NoOpCache) Get(ctx context.Context, key string, value any) error {
	return ErrNotFound
}

// Set does nothing and always returns success
func (n *NoOpCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return nil
}

// Delete does nothing and always returns success
func (n *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Exists always returns false
func (n *NoOpCache) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

// Ping always succeeds
func (n *NoOpCache) Ping(ctx context.Context) error {
	return nil
}

// Close does nothing
func (n *NoOpCache) Close() error {
	return nil
}
