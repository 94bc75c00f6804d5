package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"gorm.io/gorm"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/ports"
)

// Options selects and configures a cache adapter.
type Options struct {
	Driver        string
	DefaultTTL    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MemcachedAddr string
}

// New builds the configured adapter. The sqlite driver reuses db.
func New(ctx context.Context, opts Options, db *gorm.DB) (ports.Cache, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.cache"))

	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	switch driver {
	case "", "sqlite", "db":
		if db == nil {
			return nil, fmt.Errorf("cache driver %q needs a database", driver)
		}
		logging.Info(logCtx, "cache ready", slog.String("driver", "sqlite"))
		return NewSQLiteCache(db, opts.DefaultTTL), nil
	case "memory":
		logging.Info(logCtx, "cache ready", slog.String("driver", "memory"))
		return NewMemoryCache(opts.DefaultTTL), nil
	case "redis":
		if strings.TrimSpace(opts.RedisAddr) == "" {
			return nil, fmt.Errorf("cache.redis_addr is required for driver redis")
		}
		logging.Info(logCtx, "cache ready", slog.String("driver", "redis"), slog.String("addr", opts.RedisAddr))
		return NewRedisCache(NewRedisClient(opts.RedisAddr, opts.RedisPassword, opts.RedisDB), opts.DefaultTTL), nil
	case "memcached":
		if strings.TrimSpace(opts.MemcachedAddr) == "" {
			return nil, fmt.Errorf("cache.memcached_addr is required for driver memcached")
		}
		logging.Info(logCtx, "cache ready", slog.String("driver", "memcached"), slog.String("addr", opts.MemcachedAddr))
		return NewMemcachedCache(memcache.New(opts.MemcachedAddr), opts.DefaultTTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", opts.Driver)
	}
}
