package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"parkalert/internal/bootstrap"
	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/bootstrap/telemetry"
	"parkalert/internal/errs"
	"parkalert/internal/infrastructure/policy"
	"parkalert/internal/infrastructure/push"
	"parkalert/internal/infrastructure/scheduler"
	"parkalert/internal/interface/rest"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the expiry sweep and delivery receipts",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))
		cfg := app.Config

		addr, _ := cmd.Flags().GetString("addr")
		if addr = strings.TrimSpace(addr); addr == "" {
			addr = cfg.HTTP.Addr
		}
		migrate, _ := cmd.Flags().GetBool("migrate")
		if migrate {
			if err := app.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		}

		shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Env)
		if err != nil {
			return errs.Wrap(err, "setup telemetry")
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logging.Warn(ctx, "flush traces failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		tokens, err := rest.NewTokenIssuer(cfg.HTTP.JWTSecret, cfg.HTTP.TokenTTL)
		if err != nil {
			return errs.Wrap(err, "build token issuer")
		}
		trusted, err := cfg.HTTP.TrustedPrefixes()
		if err != nil {
			return err
		}

		sweep, err := scheduler.NewExpirySweep(app.Router, cfg.Scheduler.ExpireSpec, cfg.Scheduler.ExpireBatch)
		if err != nil {
			return err
		}
		if err := sweep.Start(ctx); err != nil {
			return errs.Wrap(err, "start expiry sweep")
		}
		defer sweep.Stop(context.Background())

		if app.NATS != nil {
			sub, err := push.SubscribeReceipts(ctx, app.NATS, cfg.Push.ReceiptsSubject, func(ctx context.Context, alertID string) error {
				_, err := app.Router.MarkDelivered(ctx, alertID)
				return err
			})
			if err != nil {
				return errs.Wrap(err, "subscribe delivery receipts")
			}
			defer func() {
				if err := sub.Unsubscribe(); err != nil {
					logging.Warn(ctx, "unsubscribe delivery receipts failed", slog.Any("err", errs.Loggable(err)))
				}
			}()
		}

		if cfg.Policy.Watch && strings.TrimSpace(cfg.Policy.File) != "" {
			go func() {
				if err := policy.Watch(ctx, cfg.Policy.File, app.Policy); err != nil {
					logging.Error(ctx, "policy watcher stopped", slog.Any("err", errs.Loggable(err)))
				}
			}()
		}

		server := rest.NewServer(addr, rest.NewHandler(rest.Deps{
			Accounts:       app.Accounts,
			Registry:       app.Registry,
			Router:         app.Router,
			Ledger:         app.Ledger,
			Tokens:         tokens,
			OriginSecret:   cfg.HTTP.OriginSecret,
			TrustedProxies: trusted,
			ReceiptSecret:  cfg.Push.WebhookSecret,
			Observer:       app.Metrics,
			Metrics:        app.Metrics.Handler(),
			Health:         app.Ping,
		}), cfg.HTTP.ReadTimeout)
		baseCtx := context.WithoutCancel(ctx)
		server.BaseContext = func(net.Listener) context.Context { return baseCtx }

		serveErr := make(chan error, 1)
		go func() {
			logging.Info(ctx, "http server started", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		select {
		case err := <-serveErr:
			if err != nil {
				logging.Error(ctx, "http server failed", slog.Any("err", errs.Loggable(err)))
				return errs.Wrap(err, "serve http")
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errs.Wrap(err, "shutdown http server")
		}
		logging.Info(ctx, "http server stopped")
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr)")
	serveCmd.Flags().Bool("migrate", true, "Migrate the schema before serving")
}
