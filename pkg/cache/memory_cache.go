package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds the in-process cache when no size is configured
const DefaultMaxEntries = 10000

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryCache is an in-process LRU cache. Values are stored JSON encoded so
// callers observe the same copy semantics as with Redis.
type MemoryCache struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryCache creates a cache holding at most maxEntries keys
func NewMemoryCache(maxEntries int) (*MemoryCache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryCache{entries: entries, now: time.Now}, nil
}

// Get retrieves a value, treating expired entries as missing
func (c *MemoryCache) Get(ctx context.Context, key string, value any) error {
	entry, ok := c.entries.Get(key)
	if !ok {
		return ErrNotFound
	}
	if entry.expired(c.now()) {
		c.entries.Remove(key)
		return ErrNotFound
	}
	if err := json.Unmarshal(entry.data, value); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Set stores a value; a non-positive ttl never expires
func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expires = c.now().Add(ttl)
	}
	c.entries.Add(key, entry)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}

// Exists checks if a live key is present without touching its recency
func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	entry, ok := c.entries.Peek(key)
	if !ok {
		return false, nil
	}
	return !entry.expired(c.now()), nil
}

// Len returns the number of stored entries, including expired ones not yet evicted
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

// Ping always succeeds
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries
func (c *MemoryCache) Close() error {
	c.entries.Purge()
	return nil
}
