// Package cache stores raw catalog responses across optional layers.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with expiry.
// Get returns (nil, nil) on a miss.
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with expiration
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in cache
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the underlying connection
	Close() error

	// Health checks cache health
	Health(ctx context.Context) error
}

// CacheError represents a cache operation error
type CacheError struct {
	Layer     string
	Operation string
	Key       string
	Err       error
}

func (e *CacheError) Error() string {
	prefix := "cache"
	if e.Layer != "" {
		prefix = e.Layer + " cache"
	}
	return prefix + " " + e.Operation + " failed for key '" + e.Key + "': " + e.Err.Error()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}
