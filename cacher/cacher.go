// Package cacher provides a generic read-through cache with automatic
// fetching on misses, used to take repeated history reads off the backend.
package cacher

import (
	"context"
	"time"
)

// FetchFunc fetches a value from the source on a cache miss. It receives a
// context for cancellation control and returns the value or an error.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher caches values with automatic fetching on misses. Implementations
// must be safe for concurrent use and must suppress cache stampede when many
// goroutines request the same missing key at once.
type Cacher[T any] interface {
	// GetOrFetch retrieves a value from the cache, or fetches it with fetchFn
	// if absent, storing the result under key with the given TTL.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - key: The cache key to retrieve or set
	//   - ttl: Time-to-live for the cached value
	//   - fetchFn: Function to fetch the value on a miss
	//
	// Returns:
	//   - The cached or fetched value
	//   - An error if retrieval or fetching fails
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix deletes all keys with the given prefix and returns how
	// many were removed.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Clear removes all items from the cache.
	Clear(ctx context.Context) error
}
