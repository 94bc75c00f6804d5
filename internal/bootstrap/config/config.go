package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Push      PushConfig      `mapstructure:"push"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type CacheConfig struct {
	Driver        string        `mapstructure:"driver"`
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	MemcachedAddr string        `mapstructure:"memcached_addr"`
}

type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
	OriginSecret string        `mapstructure:"origin_secret"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`

	// TrustedProxies lists the addresses or CIDR ranges whose
	// X-Forwarded-For and X-Real-IP headers are honoured.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// TrustedPrefixes parses TrustedProxies. A bare address becomes a single
// host prefix.
func (c HTTPConfig) TrustedPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			prefix, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("http.trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("http.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

type PushConfig struct {
	Driver          string `mapstructure:"driver"`
	NATSURL         string `mapstructure:"nats_url"`
	SubjectPrefix   string `mapstructure:"subject_prefix"`
	ReceiptsSubject string `mapstructure:"receipts_subject"`
	// WebhookSecret enables the HTTP receipts endpoint when set.
	WebhookSecret   string `mapstructure:"webhook_secret"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Insecure    bool   `mapstructure:"insecure"`
}

type PolicyConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type SchedulerConfig struct {
	ExpireSpec  string `mapstructure:"expire_spec"`
	ExpireBatch int    `mapstructure:"expire_batch"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PARKALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.String("push_driver", cfg.Push.Driver),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	var problems []error
	if strings.TrimSpace(c.Database.DSN) == "" {
		problems = append(problems, errors.New("database.dsn is required"))
	}
	if c.Database.WriteTimeout < 0 {
		problems = append(problems, errors.New("database.write_timeout must not be negative"))
	}
	if strings.TrimSpace(c.HTTP.JWTSecret) == "" {
		problems = append(problems, errors.New("http.jwt_secret is required"))
	}
	if c.HTTP.TokenTTL <= 0 {
		problems = append(problems, errors.New("http.token_ttl must be positive"))
	}
	if _, err := c.HTTP.TrustedPrefixes(); err != nil {
		problems = append(problems, err)
	}
	switch strings.ToLower(c.Push.Driver) {
	case "log", "nats":
	default:
		problems = append(problems, errors.New("push.driver must be log or nats"))
	}
	return errors.Join(problems...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "parkalert")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".parkalert/parkalert.sqlite")
	v.SetDefault("database.write_timeout", 10*time.Second)

	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.default_ttl", time.Minute)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.memcached_addr", "")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.jwt_secret", "change-me-local-only")
	v.SetDefault("http.token_ttl", 30*24*time.Hour)
	v.SetDefault("http.origin_secret", "")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.trusted_proxies", []string{})

	v.SetDefault("push.driver", "log")
	v.SetDefault("push.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("push.subject_prefix", "parkalert.push")
	v.SetDefault("push.receipts_subject", "parkalert.receipts")
	v.SetDefault("push.webhook_secret", "")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "parkalert")
	v.SetDefault("telemetry.insecure", true)

	v.SetDefault("policy.file", "")
	v.SetDefault("policy.watch", false)

	v.SetDefault("scheduler.expire_spec", "@every 1m")
	v.SetDefault("scheduler.expire_batch", 100)
}
