package cache

import (
	"context"
	"fmt"

	"github.com/developer-mesh/task-manager/pkg/observability"
)

// NewCache builds the cache selected by cfg.Type, wrapped in a circuit
// breaker when cfg.CircuitBreaker.Enabled is set. A disabled config yields NoOpCache.
func NewCache(ctx context.Context, cfg RedisConfig, logger observability.Logger) (Cache, error) {
	if !cfg.Enabled {
		return NewNoOpCache(), nil
	}

	var (
		c   Cache
		err error
	)
	switch cfg.Type {
	case "", TypeRedis:
		c, err = NewRedisCache(ctx, cfg)
	case TypeMemory:
		c, err = NewMemoryCache(cfg.MaxEntries)
	default:
		return nil, fmt.Errorf("unsupported cache type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CircuitBreaker.Enabled {
		name := cfg.Type
		if name == "" {
			name = TypeRedis
		}
		c = NewBreakerCache(c, name+"-cache", cfg.CircuitBreaker, logger)
	}
	return c, nil
}
