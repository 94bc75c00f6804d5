package abuse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/ledger"
)

// CheckSenderVelocity counts the sends of accountID in the trailing window
// plus the send being evaluated. Over maxCount the account gets a rapid_alerts
// event and the abuse penalty, and repeated flags suspend it. Called inside
// the send transaction, before the new alert is stored.
func (s *Service) CheckSenderVelocity(ctx context.Context, accountID string, window time.Duration, maxCount int) (parking.Verdict, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", parking.ErrAccountIDRequired
	}
	if window <= 0 {
		return "", errors.New("velocity window must be positive")
	}

	ctx, span := tracer.Start(ctx, "Abuse.CheckSenderVelocity")
	defer span.End()

	verdict := parking.VerdictClear
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		prior, err := s.repo.CountAlertsBySenderSince(txCtx, accountID, now.Add(-window))
		if err != nil {
			return err
		}
		count := prior + 1
		if !parking.Exceeds(count, maxCount) {
			return nil
		}
		verdict = parking.VerdictFlagged

		p := s.policy.Current()
		if _, err := s.appendEvent(txCtx, parking.SecurityEvent{
			AccountID: accountID,
			EventType: parking.SecurityRapidAlerts,
			Severity:  parking.SeverityHigh,
			Details: map[string]any{
				"count":          count,
				"max":            maxCount,
				"window_seconds": int64(window / time.Second),
			},
			ActionTaken: parking.ActionReputationPenalty,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if _, err := s.ledger.RecordEvent(txCtx, ledger.RecordEventInput{
			AccountID: accountID,
			EventType: parking.EventPenalty,
			Delta:     -p.AbusePenalty,
		}); err != nil {
			return err
		}
		return s.escalate(txCtx, accountID, p, now)
	}); err != nil {
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.String("verdict", string(verdict)))
	if verdict == parking.VerdictFlagged {
		logging.Warn(
			logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.abuse")),
			"sender velocity exceeded",
			slog.String("account_id", accountID),
			slog.Int("max", maxCount),
			slog.Duration("window", window),
		)
	}
	return verdict, nil
}

// escalate suspends an account that collected too many rapid_alerts flags.
func (s *Service) escalate(ctx context.Context, accountID string, p parking.Policy, now time.Time) error {
	if p.SuspendAfterFlags <= 0 {
		return nil
	}
	flags, err := s.repo.CountSecurityEvents(ctx, ports.SecurityEventFilter{
		AccountID: accountID,
		EventType: parking.SecurityRapidAlerts,
		Since:     now.Add(-p.SuspendFlagWindow.Duration()),
	})
	if err != nil {
		return err
	}
	if flags < int64(p.SuspendAfterFlags) {
		return nil
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Suspended() {
		return nil
	}
	if err := s.repo.SetAccountStatus(ctx, accountID, parking.AccountSuspended, now); err != nil {
		return err
	}
	_, err = s.appendEvent(ctx, parking.SecurityEvent{
		AccountID: accountID,
		EventType: parking.SecuritySuspiciousPattern,
		Severity:  parking.SeverityCritical,
		Details: map[string]any{
			"rapid_alert_flags": flags,
			"window_seconds":    int64(p.SuspendFlagWindow.Duration() / time.Second),
		},
		ActionTaken: parking.ActionAccountSuspended,
		CreatedAt:   now,
	})
	return err
}
