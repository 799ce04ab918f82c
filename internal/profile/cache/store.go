package cache

import (
	"context"
	"time"
)

// Store is the pluggable keyed value store behind the cache layer. Values are
// JSON strings; an empty TTL means no expiry. Implementations must be safe
// for concurrent use.
type Store interface {
	// Get returns the value for key. The bool reports presence; expired
	// entries are absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value with the given TTL, last writer wins.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetIfAbsent writes only when the key is missing, reporting whether
	// the write happened. This is the atomic marker primitive.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
