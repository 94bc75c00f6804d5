package cache

import (
	"context"
	"testing"
	"time"

	"parkalert/internal/infrastructure/persistence/sqlstore/sqlstoretest"
	"parkalert/internal/ports"
)

func exerciseCache(t *testing.T, cache ports.Cache) {
	t.Helper()
	ctx := context.Background()

	if err := cache.Set(ctx, "owner:abc", "acc-1", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "owner:abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "acc-1" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Set(ctx, "owner:abc", "acc-2", 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}
	value, found, err = cache.Get(ctx, "owner:abc")
	if err != nil || !found || value != "acc-2" {
		t.Fatalf("Get() after update = %q, found=%v, err=%v", value, found, err)
	}

	if err := cache.Delete(ctx, "owner:abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, found, err = cache.Get(ctx, "owner:abc")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if found {
		t.Fatalf("Get() expected found=false after delete")
	}

	if err := cache.Set(ctx, " ", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	exerciseCache(t, NewSQLiteCache(sqlstoretest.Open(t), time.Minute))
}

func TestMemoryCacheSetGetDelete(t *testing.T) {
	exerciseCache(t, NewMemoryCache(time.Minute))
}

func TestSQLiteCacheExpiry(t *testing.T) {
	cache := NewSQLiteCache(sqlstoretest.Open(t), time.Minute)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	if err := cache.Set(ctx, "owner:abc", "acc-1", 30*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	now = now.Add(31 * time.Second)
	if _, found, err := cache.Get(ctx, "owner:abc"); err != nil || found {
		t.Fatalf("Get() after ttl = found %v, err %v", found, err)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New(context.Background(), Options{Driver: "etcd"}, nil); err == nil {
		t.Fatalf("New() expected error for unknown driver")
	}
	if _, err := New(context.Background(), Options{Driver: "redis"}, nil); err == nil {
		t.Fatalf("New() expected error for redis without addr")
	}
	cache, err := New(context.Background(), Options{Driver: "memory", DefaultTTL: time.Minute}, nil)
	if err != nil {
		t.Fatalf("New(memory) error = %v", err)
	}
	if _, ok := cache.(*MemoryCache); !ok {
		t.Fatalf("New(memory) = %T", cache)
	}
}
