package ports

import (
	"context"
	"time"
)

// Cache is the server-side shared byte store used for cache-aside reads.
// Failures must stay local: callers fall back to the primary datastore.
type Cache interface {
	// Get returns the stored bytes for key; ok=false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl (ttl <= 0 keeps it until evicted).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete drops key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
