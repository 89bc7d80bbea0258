package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
type Cache interface {
	// Get decodes the value stored under key into dst.
	// Returns false if the key is not found or has expired.
	Get(ctx context.Context, key string, dst any) (bool, error)

	// Set stores a value in the cache with the given key and TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}
