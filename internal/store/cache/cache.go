package cache

import (
	"context"
	"time"
)

// CacheService is the read-through cache sitting in front of the config
// store. Implementations marshal values to JSON.
type CacheService interface {
	// Get retrieves a value and unmarshals it into the 'dest' pointer.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error
}
