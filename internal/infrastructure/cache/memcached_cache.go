package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// MemcachedCache stores entries in memcached. Memcached keys cannot hold
// spaces or control characters; callers only use hex digests and ids.
type MemcachedCache struct {
	client     *memcache.Client
	defaultTTL time.Duration
}

var _ ports.Cache = (*MemcachedCache)(nil)

func NewMemcachedCache(client *memcache.Client, defaultTTL time.Duration) *MemcachedCache {
	return &MemcachedCache{client: client, defaultTTL: defaultTTL}
}

func (c *MemcachedCache) Get(ctx context.Context, key string) (string, bool, error) {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}
	item, err := c.client.Get(trimmedKey)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "memcached get")
	}
	return string(item.Value), true, nil
}

func (c *MemcachedCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	item := &memcache.Item{Key: trimmedKey, Value: []byte(value), Expiration: int32(ttl / time.Second)}
	if err := c.client.Set(item); err != nil {
		return errs.Wrap(err, "memcached set")
	}
	return nil
}

func (c *MemcachedCache) Delete(ctx context.Context, key string) error {
	trimmedKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}
	if err := c.client.Delete(trimmedKey); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return errs.Wrap(err, "memcached delete")
	}
	return nil
}
