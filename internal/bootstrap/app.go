package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"parkalert/internal/bootstrap/config"
	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
	"parkalert/internal/infrastructure/metrics"
	"parkalert/internal/infrastructure/persistence/sqlstore/model"
	"parkalert/internal/infrastructure/policy"
	"parkalert/internal/usecase/abuse"
	"parkalert/internal/usecase/accounts"
	"parkalert/internal/usecase/ledger"
	"parkalert/internal/usecase/registry"
	"parkalert/internal/usecase/router"
)

// App is everything a command needs once the fx graph has started.
type App struct {
	Config config.Config
	DB     *gorm.DB

	Accounts *accounts.Service
	Registry *registry.Service
	Ledger   *ledger.Service
	Abuse    *abuse.Service
	Router   *router.Service

	Policy  *policy.Store
	Metrics *metrics.Collector
	// NATS is nil unless push.driver is nats.
	NATS *nats.Conn
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}

// Ping checks that the database answers.
func (a *App) Ping(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}
	return sqlDB.PingContext(ctx)
}
