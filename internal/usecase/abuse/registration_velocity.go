package abuse

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
)

// CheckRegistrationVelocity flags an origin that registered more than
// maxCount identifiers inside window. It only records; it never blocks. The
// attempt being evaluated must already be stored.
func (s *Service) CheckRegistrationVelocity(ctx context.Context, originProxy string, accountID string, window time.Duration, maxCount int) (parking.Verdict, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	originProxy = strings.TrimSpace(originProxy)
	if originProxy == "" {
		return "", errors.New("origin proxy is required")
	}
	if window <= 0 {
		return "", errors.New("velocity window must be positive")
	}

	ctx, span := tracer.Start(ctx, "Abuse.CheckRegistrationVelocity")
	defer span.End()

	verdict := parking.VerdictClear
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		count, err := s.repo.CountRegistrationsSince(txCtx, originProxy, now.Add(-window))
		if err != nil {
			return err
		}
		if !parking.Exceeds(count, maxCount) {
			return nil
		}
		verdict = parking.VerdictFlagged
		_, err = s.appendEvent(txCtx, parking.SecurityEvent{
			AccountID: strings.TrimSpace(accountID),
			EventType: parking.SecurityRapidRegistrations,
			Severity:  parking.SeverityMedium,
			Details: map[string]any{
				"origin":         originProxy,
				"count":          count,
				"max":            maxCount,
				"window_seconds": int64(window / time.Second),
			},
			CreatedAt: now,
		})
		return err
	}); err != nil {
		span.RecordError(err)
		return "", err
	}

	if verdict == parking.VerdictFlagged {
		logging.Warn(
			logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.abuse")),
			"registration velocity exceeded",
			slog.String("account_id", accountID),
			slog.Int("max", maxCount),
		)
	}
	return verdict, nil
}

// CheckProofMismatches flags an identifier that collected maxCount or more
// failed ownership claims inside window.
func (s *Service) CheckProofMismatches(ctx context.Context, identifierHash string, accountID string, window time.Duration, maxCount int) (parking.Verdict, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := s.ready(); err != nil {
		return "", err
	}
	if window <= 0 || maxCount <= 0 {
		return parking.VerdictClear, nil
	}

	verdict := parking.VerdictClear
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		count, err := s.repo.CountProofMismatchesSince(txCtx, identifierHash, now.Add(-window))
		if err != nil {
			return err
		}
		if count < int64(maxCount) {
			return nil
		}
		verdict = parking.VerdictFlagged
		_, err = s.appendEvent(txCtx, parking.SecurityEvent{
			AccountID: strings.TrimSpace(accountID),
			EventType: parking.SecuritySuspiciousPattern,
			Severity:  parking.SeverityMedium,
			Details: map[string]any{
				"reason":          "proof_mismatch",
				"identifier_hash": identifierHash,
				"count":           count,
				"window_seconds":  int64(window / time.Second),
			},
			CreatedAt: now,
		})
		return err
	}); err != nil {
		return "", err
	}
	return verdict, nil
}
