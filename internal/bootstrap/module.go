package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"parkalert/internal/bootstrap/config"
	"parkalert/internal/bootstrap/database"
	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	cacheinfra "parkalert/internal/infrastructure/cache"
	"parkalert/internal/infrastructure/metrics"
	"parkalert/internal/infrastructure/persistence/sqlstore/repository"
	"parkalert/internal/infrastructure/persistence/sqlstore/uow"
	"parkalert/internal/infrastructure/policy"
	"parkalert/internal/infrastructure/push"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/abuse"
	"parkalert/internal/usecase/accounts"
	"parkalert/internal/usecase/ledger"
	"parkalert/internal/usecase/registry"
	"parkalert/internal/usecase/router"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(
		fx.Annotate(
			repository.NewStore,
			fx.As(new(ports.ParkingRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(providePolicy),
	fx.Provide(func(store *policy.Store) ports.PolicySource { return store }),
	fx.Provide(metrics.NewCollector),
	fx.Provide(func(c *metrics.Collector) ports.Metrics { return c }),
	fx.Provide(func() ports.Clock { return ports.SystemClock{} }),
	fx.Provide(providePush),
	fx.Provide(
		ledger.NewService,
		abuse.NewService,
		registry.NewService,
		accounts.NewService,
		provideRouter,
	),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideUnitOfWork(db *gorm.DB, cfg config.Config) *uow.UnitOfWork {
	return uow.NewUnitOfWork(db, cfg.Database.WriteTimeout)
}

func provideCache(ctx context.Context, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	return cacheinfra.New(ctx, cacheinfra.Options{
		Driver:        cfg.Cache.Driver,
		DefaultTTL:    cfg.Cache.DefaultTTL,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		MemcachedAddr: cfg.Cache.MemcachedAddr,
	}, db)
}

// providePolicy loads policy.file over the built-in defaults. A configured
// file that does not exist yet is not an error.
func providePolicy(ctx context.Context, cfg config.Config) (*policy.Store, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	path := strings.TrimSpace(cfg.Policy.File)
	if path == "" {
		return policy.NewStore(parking.DefaultPolicy()), nil
	}
	p, err := policy.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Warn(logCtx, "policy file not found, using defaults", slog.String("path", path))
		return policy.NewStore(parking.DefaultPolicy()), nil
	}
	if err != nil {
		return nil, errs.Wrap(err, "load policy")
	}
	logging.Info(logCtx, "policy loaded", slog.String("path", path))
	return policy.NewStore(p), nil
}

type pushResult struct {
	fx.Out

	Sender ports.PushSender
	Conn   *nats.Conn
}

func providePush(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (pushResult, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Push.Driver)); driver {
	case "", "log":
		logging.Info(logCtx, "push sender ready", slog.String("driver", "log"))
		return pushResult{Sender: push.LogSender{}}, nil
	case "nats":
		conn, err := push.Connect(cfg.Push.NATSURL, cfg.App.Name)
		if err != nil {
			return pushResult{}, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return conn.Drain()
			},
		})
		logging.Info(logCtx, "push sender ready", slog.String("driver", "nats"), slog.String("url", cfg.Push.NATSURL))
		return pushResult{Sender: push.NewNATSSender(conn, cfg.Push.SubjectPrefix), Conn: conn}, nil
	default:
		return pushResult{}, errors.New("unsupported push driver: " + driver)
	}
}

type routerParams struct {
	fx.In

	Repo    ports.ParkingRepository
	UoW     ports.UnitOfWork
	Ledger  *ledger.Service
	Abuse   *abuse.Service
	Push    ports.PushSender
	Policy  ports.PolicySource
	Clock   ports.Clock
	Metrics ports.Metrics
}

func provideRouter(p routerParams) *router.Service {
	return router.NewService(router.Deps{
		Repo:    p.Repo,
		UoW:     p.UoW,
		Ledger:  p.Ledger,
		Abuse:   p.Abuse,
		Push:    p.Push,
		Policy:  p.Policy,
		Clock:   p.Clock,
		Metrics: p.Metrics,
	})
}

type appParams struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Accounts *accounts.Service
	Registry *registry.Service
	Ledger   *ledger.Service
	Abuse    *abuse.Service
	Router   *router.Service
	Policy   *policy.Store
	Metrics  *metrics.Collector
	NATS     *nats.Conn
}

func provideApp(p appParams) *App {
	return &App{
		Config:   p.Config,
		DB:       p.DB,
		Accounts: p.Accounts,
		Registry: p.Registry,
		Ledger:   p.Ledger,
		Abuse:    p.Abuse,
		Router:   p.Router,
		Policy:   p.Policy,
		Metrics:  p.Metrics,
		NATS:     p.NATS,
	}
}
