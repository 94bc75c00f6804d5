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
	"parkalert/internal/usecase/ledger"
)

// MarkDelivered records a delivery receipt. Only a sent alert moves; a
// receipt for an alert that already moved on returns it unchanged.
func (s *Service) MarkDelivered(ctx context.Context, alertID string) (parking.Alert, error) {
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

	ctx, span := tracer.Start(ctx, "Router.MarkDelivered")
	defer span.End()

	var (
		alert parking.Alert
		moved bool
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		at := s.clock.Now()
		var err error
		moved, err = s.repo.TransitionAlert(txCtx, alertID,
			parking.SourcesFor(parking.StatusDelivered), parking.StatusDelivered,
			ports.AlertStamps{DeliveredAt: &at})
		if err != nil {
			return err
		}
		alert, err = s.repo.GetAlert(txCtx, alertID)
		return err
	}); err != nil {
		span.RecordError(err)
		return parking.Alert{}, err
	}

	if moved {
		s.metrics.AlertTransitioned(parking.StatusDelivered)
		logging.Debug(s.logContext(ctx, alertID), "alert delivered")
	}
	return alert, nil
}

// Acknowledge is the receiver saying "on my way". It pays nothing.
func (s *Service) Acknowledge(ctx context.Context, alertID string, receiverAccountID string) (parking.Alert, error) {
	return s.apply(ctx, alertID, receiverAccountID, parking.ActionAcknowledge, "")
}

// Resolve closes the alert and is the single reputation payout point.
func (s *Service) Resolve(ctx context.Context, alertID string, receiverAccountID string, response string) (parking.Alert, error) {
	return s.apply(ctx, alertID, receiverAccountID, parking.ActionResolve, response)
}

// Cancel withdraws an alert the receiver has not reacted to yet.
func (s *Service) Cancel(ctx context.Context, alertID string, senderAccountID string) (parking.Alert, error) {
	return s.apply(ctx, alertID, senderAccountID, parking.ActionCancel, "")
}

// ReportSpam cancels an unwanted alert on behalf of its receiver and
// penalises the sender.
func (s *Service) ReportSpam(ctx context.Context, alertID string, receiverAccountID string) (parking.Alert, error) {
	return s.apply(ctx, alertID, receiverAccountID, parking.ActionReport, "")
}

// Apply dispatches a client action. response is only read by resolve.
func (s *Service) Apply(ctx context.Context, alertID string, actorAccountID string, action parking.AlertAction, response string) (parking.Alert, error) {
	if _, err := parking.ParseAlertAction(string(action)); err != nil {
		return parking.Alert{}, err
	}
	return s.apply(ctx, alertID, actorAccountID, action, response)
}

func (s *Service) apply(ctx context.Context, alertID string, actorAccountID string, action parking.AlertAction, response string) (parking.Alert, error) {
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
	actor := strings.TrimSpace(actorAccountID)
	if actor == "" {
		return parking.Alert{}, parking.ErrAccountIDRequired
	}
	p := s.policy.Current()
	if action == parking.ActionResolve {
		var err error
		if response, err = parking.NormalizeMessage(response, p.MessageMaxLength); err != nil {
			return parking.Alert{}, err
		}
	}

	ctx, span := tracer.Start(ctx, "Router."+string(action))
	defer span.End()
	span.SetAttributes(attribute.String("alert_id", alertID))

	var alert parking.Alert
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		current, err := s.repo.GetAlert(txCtx, alertID)
		if err != nil {
			return err
		}
		if action.ByReceiver() && current.ReceiverAccountID != actor {
			return parking.ErrNotReceiver
		}
		if !action.ByReceiver() && current.SenderAccountID != actor {
			return parking.ErrNotSender
		}
		if !action.AllowedFrom(current.Status) {
			return invalidState(current, action)
		}
		// An overdue alert can no longer be answered even before the sweep
		// has expired it.
		if (action == parking.ActionAcknowledge || action == parking.ActionResolve) && now.After(current.ExpiresAt) {
			return invalidState(parking.Alert{Status: parking.StatusExpired}, action)
		}

		stamps := ports.AlertStamps{}
		switch action {
		case parking.ActionAcknowledge:
			stamps.AcknowledgedAt = &now
		case parking.ActionResolve:
			stamps.ResolvedAt = &now
			if response != "" {
				stamps.Response = &response
			}
		default:
			stamps.CancelledAt = &now
		}
		moved, err := s.repo.TransitionAlert(txCtx, alertID, action.Sources(), action.Target(), stamps)
		if err != nil {
			return err
		}
		if !moved {
			return parking.ErrTransitionConflict
		}
		alert, err = s.repo.GetAlert(txCtx, alertID)
		if err != nil {
			return err
		}

		switch action {
		case parking.ActionResolve:
			for _, reward := range parking.ResolutionRewards(p, alert) {
				if _, err := s.ledger.RecordEvent(txCtx, ledger.RecordEventInput{
					AccountID:      reward.AccountID,
					EventType:      reward.EventType,
					Delta:          reward.Delta,
					RelatedAlertID: alert.AlertID,
				}); err != nil {
					return err
				}
			}
		case parking.ActionReport:
			return s.abuse.RecordSpamReport(txCtx, alert, actor)
		}
		return nil
	}); err != nil {
		span.RecordError(err)
		return parking.Alert{}, err
	}

	s.metrics.AlertTransitioned(alert.Status)
	logging.Info(s.logContext(ctx, alertID), "alert "+string(alert.Status),
		slog.String("action", string(action)),
	)
	return alert, nil
}
