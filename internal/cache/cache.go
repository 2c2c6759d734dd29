// Package cache provides a Redis-backed cache for read-side query results.
package cache

import (
	"context"
	"time"
)

// Cache is the subset of Redis operations the read side needs. A nil-safe
// no-op implementation keeps caching optional in tests.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int64, error)
}

// Noop is a Cache that stores nothing. Used when caching is disabled.
type Noop struct{}

// Get always misses.
func (Noop) Get(context.Context, string) (string, error) { return "", nil }

// Set discards the value.
func (Noop) Set(context.Context, string, interface{}, time.Duration) error { return nil }

// Del does nothing.
func (Noop) Del(context.Context, ...string) error { return nil }

// Exists reports no keys.
func (Noop) Exists(context.Context, ...string) (int64, error) { return 0, nil }
