package ports

import (
	"context"
	"time"
)

// Cache is a best-effort key-value capability for usecases. A ttl of zero
// means the adapter default. Adapters: sqlite kv table, in-process memory,
// Redis and memcached.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// OwnerCacheKey is the key of the cached owner lookup for one identifier.
func OwnerCacheKey(identifierHash string) string {
	return "owner:" + identifierHash
}
