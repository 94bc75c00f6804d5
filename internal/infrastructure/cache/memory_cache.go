package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"parkalert/internal/ports"
)

// MemoryCache is a process-local cache. Entries vanish on restart.
type MemoryCache struct {
	store *gocache.Cache
}

var _ ports.Cache = (*MemoryCache)(nil)

func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	return &MemoryCache{store: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}
	value, found := c.store.Get(trimmedKey)
	if !found {
		return "", false, nil
	}
	s, ok := value.(string)
	return s, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(trimmedKey, value, ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	c.store.Delete(trimmedKey)
	return nil
}
