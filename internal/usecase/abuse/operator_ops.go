package abuse

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// Reinstate lifts a suspension. Reinstating an active account is a no-op.
func (s *Service) Reinstate(ctx context.Context, accountID string, reason string) (parking.Account, error) {
	if ctx == nil {
		return parking.Account{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return parking.Account{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return parking.Account{}, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return parking.Account{}, parking.ErrAccountIDRequired
	}

	var (
		account    parking.Account
		reinstated bool
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		if err := s.repo.TouchAccount(txCtx, accountID, now); err != nil {
			return err
		}
		current, err := s.repo.GetAccount(txCtx, accountID)
		if err != nil {
			return err
		}
		if !current.Suspended() {
			account = current
			return nil
		}
		if err := s.repo.SetAccountStatus(txCtx, accountID, parking.AccountActive, now); err != nil {
			return err
		}
		details := map[string]any{}
		if reason = strings.TrimSpace(reason); reason != "" {
			details["reason"] = reason
		}
		if _, err := s.appendEvent(txCtx, parking.SecurityEvent{
			AccountID:   accountID,
			EventType:   parking.SecuritySuspiciousPattern,
			Severity:    parking.SeverityLow,
			Details:     details,
			ActionTaken: parking.ActionAccountReinstated,
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		account, err = s.repo.GetAccount(txCtx, accountID)
		reinstated = err == nil
		return err
	}); err != nil {
		return parking.Account{}, err
	}

	if reinstated {
		logging.Info(
			logging.WithAttrs(ctx, slog.String("component", "usecase.abuse")),
			"account reinstated",
			slog.String("account_id", accountID),
		)
	}
	return account, nil
}

func (s *Service) ListSecurityEvents(ctx context.Context, filter ports.SecurityEventFilter) ([]parking.SecurityEvent, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if s.repo == nil {
		return nil, errors.New("abuse repository is required")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.repo.ListSecurityEvents(ctx, filter)
}
