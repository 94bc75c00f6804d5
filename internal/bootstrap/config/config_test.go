package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("PARKALERT_CACHE_DRIVER", "memory")
	t.Setenv("PARKALERT_DATABASE_WRITE_TIMEOUT", "3s")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  env: test\nhttp:\n  addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Env != "test" || cfg.HTTP.Addr != ":9090" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Cache.Driver != "memory" {
		t.Fatalf("Cache.Driver = %q, want env override", cfg.Cache.Driver)
	}
	if cfg.Database.WriteTimeout != 3*time.Second {
		t.Fatalf("Database.WriteTimeout = %s", cfg.Database.WriteTimeout)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Push.Driver != "log" {
		t.Fatalf("defaults missing: %+v", cfg)
	}
}

func TestValidateRejectsBadPushDriver(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{DSN: "x"},
		HTTP:     HTTPConfig{JWTSecret: "s", TokenTTL: time.Hour},
		Push:     PushConfig{Driver: "apns"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() expected error")
	}
	cfg.Push.Driver = "nats"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestTrustedPrefixes(t *testing.T) {
	cfg := HTTPConfig{TrustedProxies: []string{"10.0.0.0/8", " 127.0.0.1 ", ""}}
	prefixes, err := cfg.TrustedPrefixes()
	if err != nil {
		t.Fatalf("TrustedPrefixes() error = %v", err)
	}
	if len(prefixes) != 2 || prefixes[0].String() != "10.0.0.0/8" || prefixes[1].String() != "127.0.0.1/32" {
		t.Fatalf("TrustedPrefixes() = %v", prefixes)
	}

	bad := Config{
		Database: DatabaseConfig{DSN: "x"},
		HTTP:     HTTPConfig{JWTSecret: "s", TokenTTL: time.Hour, TrustedProxies: []string{"lb.internal"}},
		Push:     PushConfig{Driver: "log"},
	}
	if err := bad.Validate(); err == nil {
		t.Fatalf("Validate() expected error for a hostname proxy")
	}
}
