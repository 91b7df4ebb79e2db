package cache

import (
	"context"
	"errors"
	"time"

	"github.com/developer-mesh/task-manager/pkg/observability"
	"github.com/developer-mesh/task-manager/pkg/resilience"
)

// BreakerCache routes every call through a circuit breaker so an unavailable
// backend fails fast. Misses are not failures.
type BreakerCache struct {
	inner   Cache
	breaker *resilience.CircuitBreaker
}

// NewBreakerCache wraps inner with a circuit breaker built from config
func NewBreakerCache(inner Cache, name string, config resilience.CircuitBreakerConfig, logger observability.Logger) *BreakerCache {
	isSuccessful := func(err error) bool {
		return err == nil || errors.Is(err, ErrNotFound)
	}
	return &BreakerCache{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(name, config, isSuccessful, logger),
	}
}

// State reports the breaker state
func (c *BreakerCache) State() string {
	return c.breaker.State()
}

func (c *BreakerCache) Get(ctx context.Context, key string, value any) error {
	return c.breaker.Execute(func() error {
		return c.inner.Get(ctx, key, value)
	})
}

func (c *BreakerCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.breaker.Execute(func() error {
		return c.inner.Set(ctx, key, value, ttl)
	})
}

func (c *BreakerCache) Delete(ctx context.Context, key string) error {
	return c.breaker.Execute(func() error {
		return c.inner.Delete(ctx, key)
	})
}

func (c *BreakerCache) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := c.breaker.Execute(func() error {
		var err error
		exists, err = c.inner.Exists(ctx, key)
		return err
	})
	return exists, err
}

// Ping bypasses the breaker so health checks always see the real backend
func (c *BreakerCache) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func (c *BreakerCache) Close() error {
	return c.inner.Close()
}
