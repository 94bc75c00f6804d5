package ledger

import (
	"context"
	"errors"
	"strings"

	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
)

// QuotaUsed counts the sends of accountID since the current UTC day began.
func (s *Service) QuotaUsed(ctx context.Context, accountID string) (int, error) {
	if s.repo == nil {
		return 0, errors.New("ledger repository is required")
	}
	dayStart := parking.QuotaDayStart(s.clock.Now())
	// sent_at is compared strictly, so step back one tick to include midnight.
	used, err := s.repo.CountAlertsBySenderSince(ctx, accountID, dayStart.Add(-1))
	if err != nil {
		return 0, err
	}
	return int(used), nil
}

func (s *Service) Summary(ctx context.Context, accountID string) (Summary, error) {
	if ctx == nil {
		return Summary{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Summary{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return Summary{}, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Summary{}, parking.ErrAccountIDRequired
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}
	used, err := s.QuotaUsed(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}

	tier := parking.TierFor(account.ReputationScore)
	return Summary{
		AccountID:      account.AccountID,
		Score:          account.ReputationScore,
		Status:         account.Status,
		Tier:           tier,
		DailyQuota:     tier.DailyQuota,
		UsedToday:      used,
		RemainingToday: tier.Remaining(used),
		QuotaResetsAt:  parking.QuotaResetAt(s.clock.Now()),
	}, nil
}

// VerifyLedger checks score == InitialReputation + sum(applied deltas).
func (s *Service) VerifyLedger(ctx context.Context, accountID string) (Audit, error) {
	if ctx == nil {
		return Audit{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Audit{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return Audit{}, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Audit{}, parking.ErrAccountIDRequired
	}

	var audit Audit
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		account, err := s.repo.GetAccount(txCtx, accountID)
		if err != nil {
			return err
		}
		requested, applied, err := s.repo.SumReputationDeltas(txCtx, accountID)
		if err != nil {
			return err
		}
		events, err := s.repo.CountReputationEvents(txCtx, accountID, "", "")
		if err != nil {
			return err
		}
		expected := parking.InitialReputation + int(applied)
		audit = Audit{
			AccountID:     accountID,
			Score:         account.ReputationScore,
			Expected:      expected,
			RequestedSum:  requested,
			AppliedSum:    applied,
			Events:        events,
			Consistent:    account.ReputationScore == expected,
			ClampedPoints: applied - requested,
		}
		return nil
	}); err != nil {
		return Audit{}, err
	}
	return audit, nil
}

// History returns the newest ledger lines first.
func (s *Service) History(ctx context.Context, accountID string, limit int) ([]parking.ReputationEvent, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, parking.ErrAccountIDRequired
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListReputationEvents(ctx, accountID, limit)
}
