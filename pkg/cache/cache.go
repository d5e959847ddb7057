// Package cache stores finished model output so identical requests do not hit
// the model provider twice.
//
// Three backends implement [Cache]: [FileCache] for the CLI (entries under
// ~/.cache/scribe), [RedisCache] for shared server deployments, and
// [NullCache] to disable caching. Keys come from a [Keyer] so that every
// input that changes the model output (transcript, provider, model, prompt
// version) changes the key.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop all of their entries.
type Clearer interface {
	Clear(ctx context.Context) error
}
