package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// SendAlert resolves the target identifier, applies the send gates and stores
// a sent alert. Push happens after commit and never undoes the send.
func (s *Service) SendAlert(ctx context.Context, input SendInput) (parking.Alert, error) {
	if ctx == nil {
		return parking.Alert{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return parking.Alert{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return parking.Alert{}, err
	}

	sender := strings.TrimSpace(input.SenderAccountID)
	if sender == "" {
		return parking.Alert{}, parking.ErrAccountIDRequired
	}
	hash, err := parking.NormalizeIdentifierHash(input.TargetIdentifierHash)
	if err != nil {
		return parking.Alert{}, err
	}
	urgency, err := parking.ParseUrgency(input.Urgency)
	if err != nil {
		return parking.Alert{}, err
	}
	p := s.policy.Current()
	message, err := parking.NormalizeMessage(input.Message, p.MessageMaxLength)
	if err != nil {
		return parking.Alert{}, err
	}

	ctx, span := tracer.Start(ctx, "Router.SendAlert")
	defer span.End()

	var alert parking.Alert
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		if err := s.repo.TouchAccount(txCtx, sender, now); err != nil {
			return err
		}
		account, err := s.repo.GetAccount(txCtx, sender)
		if err != nil {
			return err
		}
		identifier, err := s.repo.GetIdentifier(txCtx, hash)
		if err != nil {
			return err
		}
		if identifier.OwnerAccountID == sender {
			return parking.ErrSelfAlert
		}
		if account.Suspended() {
			return parking.ErrAccountSuspended
		}

		tier := parking.TierFor(account.ReputationScore)
		if !tier.Unlimited() {
			used, err := s.ledger.QuotaUsed(txCtx, sender)
			if err != nil {
				return err
			}
			if used >= tier.DailyQuota {
				return &parking.QuotaError{
					Tier:    tier.Name,
					Quota:   tier.DailyQuota,
					Used:    used,
					ResetAt: parking.QuotaResetAt(now),
				}
			}
		}

		verdict, err := s.abuse.CheckSenderVelocity(txCtx, sender, p.SenderVelocityWindow.Duration(), p.SenderVelocityMax)
		if err != nil {
			return err
		}

		alert = parking.Alert{
			AlertID:              uuid.NewString(),
			SenderAccountID:      sender,
			ReceiverAccountID:    identifier.OwnerAccountID,
			TargetIdentifierHash: hash,
			Urgency:              urgency,
			Message:              message,
			Status:               parking.StatusSent,
			Flagged:              verdict == parking.VerdictFlagged,
			SentAt:               now,
			ExpiresAt:            now.Add(p.AlertTTL.Duration()),
		}
		return s.repo.CreateAlert(txCtx, alert)
	}); err != nil {
		span.RecordError(err)
		return parking.Alert{}, err
	}

	span.SetAttributes(
		attribute.String("alert_id", alert.AlertID),
		attribute.String("urgency", string(alert.Urgency)),
		attribute.Bool("flagged", alert.Flagged),
	)
	s.metrics.AlertSent(alert.Urgency, alert.Flagged)
	logging.Info(s.logContext(ctx, alert.AlertID), "alert sent",
		slog.String("urgency", string(alert.Urgency)),
		slog.Bool("flagged", alert.Flagged),
	)

	return s.deliver(ctx, alert), nil
}

// deliver hands the alert to the push collaborator. Failures are logged and
// leave the alert in sent, where the expiry sweep eventually picks it up.
func (s *Service) deliver(ctx context.Context, alert parking.Alert) parking.Alert {
	if s.push == nil {
		return alert
	}
	logCtx := s.logContext(ctx, alert.AlertID)

	result, err := s.push.Send(ctx, ports.PushMessage{
		AccountID: alert.ReceiverAccountID,
		AlertID:   alert.AlertID,
		Title:     alert.PushTitle(),
		Body:      alert.PushBody(),
		Urgency:   alert.Urgency,
		SoundHint: alert.Urgency.SoundHint(),
	})
	if err != nil {
		s.metrics.PushAttempted("failed")
		logging.Warn(logCtx, "push failed", slog.Any("err", errs.Loggable(err)))
		return alert
	}
	if !result.Accepted {
		s.metrics.PushAttempted("rejected")
		logging.Warn(logCtx, "push rejected by provider")
		return alert
	}
	s.metrics.PushAttempted("accepted")

	at := s.clock.Now()
	if err := s.repo.MarkPushSent(ctx, alert.AlertID, at); err != nil {
		logging.Warn(logCtx, "mark push sent failed", slog.Any("err", errs.Loggable(err)))
	} else {
		alert.PushSent = true
		alert.PushSentAt = &at
	}

	if result.Delivered {
		delivered, err := s.MarkDelivered(ctx, alert.AlertID)
		if err != nil {
			logging.Warn(logCtx, "mark delivered failed", slog.Any("err", errs.Loggable(err)))
			return alert
		}
		return delivered
	}
	return alert
}
