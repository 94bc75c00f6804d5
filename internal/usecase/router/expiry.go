package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// Expire times out an alert once its expiry has passed. Terminal alerts are
// returned unchanged. Expiry never touches reputation.
func (s *Service) Expire(ctx context.Context, alertID string) (parking.Alert, error) {
	if ctx == nil {
		return parking.Alert{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return parking.Alert{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return parking.Alert{}, err
	}
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return parking.Alert{}, parking.ErrAlertIDRequired
	}

	alert, _, err := s.expire(ctx, alertID)
	return alert, err
}

func (s *Service) expire(ctx context.Context, alertID string) (parking.Alert, bool, error) {
	ctx, span := tracer.Start(ctx, "Router.Expire")
	defer span.End()

	var (
		alert parking.Alert
		moved bool
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		current, err := s.repo.GetAlert(txCtx, alertID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			alert = current
			return nil
		}
		if !now.After(current.ExpiresAt) {
			return parking.ErrNotExpired
		}
		moved, err = s.repo.TransitionAlert(txCtx, alertID, parking.SourcesFor(parking.StatusExpired), parking.StatusExpired,
			ports.AlertStamps{ExpiredAt: &now})
		if err != nil {
			return err
		}
		alert, err = s.repo.GetAlert(txCtx, alertID)
		if err != nil {
			return err
		}
		if !moved && !alert.Status.Terminal() {
			return parking.ErrTransitionConflict
		}
		return nil
	}); err != nil {
		span.RecordError(err)
		return parking.Alert{}, false, err
	}

	span.SetAttributes(attribute.Bool("expired", moved))
	if moved {
		s.metrics.AlertTransitioned(parking.StatusExpired)
		logging.Debug(s.logContext(ctx, alertID), "alert expired")
	}
	return alert, moved, nil
}

// ExpireDue expires up to limit overdue alerts and reports how many moved.
// One failing alert does not stop the sweep.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	if limit > maxSweepLimit {
		limit = maxSweepLimit
	}

	due, err := s.repo.ListDueForExpiry(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, errs.Wrap(err, "list due alerts")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.router"))
	expired := 0
	for _, alert := range due {
		if err := ctx.Err(); err != nil {
			return expired, errs.Wrap(err, "check context")
		}
		_, moved, err := s.expire(ctx, alert.AlertID)
		if err != nil {
			logging.Warn(logCtx, "expire alert failed",
				slog.String("alert_id", alert.AlertID),
				slog.Any("err", errs.Loggable(err)),
			)
			continue
		}
		if moved {
			expired++
		}
	}
	if expired > 0 {
		logging.Info(logCtx, "expiry sweep finished", slog.Int("expired", expired), slog.Int("due", len(due)))
	}
	return expired, nil
}
