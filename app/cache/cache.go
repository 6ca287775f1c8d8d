package cache

import (
	"context"
	"time"
)

// Cache is a string key/value store with per-entry TTL, used to bound
// repeated lookups against external services. Implementations treat cache
// failures as misses so callers can always fall through to the source.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Close() error
}
