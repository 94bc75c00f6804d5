package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// TransferOwnership moves an identifier to a new owner who presents the
// stored ownership proof. The update is conditional on that proof.
func (s *Service) TransferOwnership(ctx context.Context, input TransferInput) (parking.Identifier, error) {
	if ctx == nil {
		return parking.Identifier{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return parking.Identifier{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return parking.Identifier{}, err
	}

	hash, err := parking.NormalizeIdentifierHash(input.IdentifierHash)
	if err != nil {
		return parking.Identifier{}, err
	}
	proof, err := parking.NormalizeProofHash(input.ProofHash)
	if err != nil {
		return parking.Identifier{}, err
	}
	newOwner := strings.TrimSpace(input.NewOwnerAccountID)
	if newOwner == "" {
		return parking.Identifier{}, parking.ErrAccountIDRequired
	}

	ctx, span := tracer.Start(ctx, "Registry.TransferOwnership")
	defer span.End()

	var (
		identifier parking.Identifier
		outcome    ports.RegistrationOutcome
	)
	txErr := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		if err := s.repo.TouchAccount(txCtx, newOwner, now); err != nil {
			return err
		}
		existing, err := s.repo.GetIdentifier(txCtx, hash)
		if err != nil {
			return err
		}
		if existing.OwnerAccountID == newOwner {
			outcome = ports.RegistrationUnchanged
			identifier = existing
			return nil
		}
		if !parking.ProofMatches(existing.OwnershipProofHash, proof) {
			outcome = ports.RegistrationProofMismatch
			return parking.ErrProofMismatch
		}
		if err := s.checkLimit(txCtx, newOwner, s.policy.Current().MaxIdentifiersPerOwner); err != nil {
			outcome = ports.RegistrationLimitReached
			return err
		}
		moved, err := s.repo.TransferIdentifier(txCtx, hash, existing.OwnershipProofHash, newOwner, proof, now)
		if err != nil {
			return err
		}
		if !moved {
			outcome = ports.RegistrationProofMismatch
			return parking.ErrProofMismatch
		}
		outcome = ports.RegistrationTransferred
		identifier, err = s.repo.GetIdentifier(txCtx, hash)
		return err
	})

	if outcome != "" {
		s.recordAttempt(ctx, ports.RegistrationAttempt{
			OriginProxy:    originOrAccount(strings.TrimSpace(input.OriginProxy), newOwner),
			IdentifierHash: hash,
			AccountID:      newOwner,
			Outcome:        outcome,
		})
	}
	if txErr != nil {
		span.RecordError(txErr)
		return parking.Identifier{}, txErr
	}

	if outcome == ports.RegistrationTransferred {
		s.invalidateOwner(ctx, hash)
		logging.Info(
			logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.registry")),
			"identifier transferred",
			slog.String("owner_account_id", newOwner),
		)
	}
	return identifier, nil
}

// Unregister deletes an identifier and cancels the alerts naming it that
// were never delivered. It returns the number of cancelled alerts.
func (s *Service) Unregister(ctx context.Context, identifierHash string, ownerAccountID string) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	hash, err := parking.NormalizeIdentifierHash(identifierHash)
	if err != nil {
		return 0, err
	}
	owner := strings.TrimSpace(ownerAccountID)
	if owner == "" {
		return 0, parking.ErrAccountIDRequired
	}

	ctx, span := tracer.Start(ctx, "Registry.Unregister")
	defer span.End()

	cancelled := 0
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		existing, err := s.repo.GetIdentifier(txCtx, hash)
		if err != nil {
			return err
		}
		if existing.OwnerAccountID != owner {
			return parking.ErrNotOwner
		}

		n, err := cancelPendingAlerts(txCtx, s.repo, hash, now)
		if err != nil {
			return err
		}
		cancelled = n

		deleted, err := s.repo.DeleteIdentifier(txCtx, hash, owner)
		if err != nil {
			return err
		}
		if !deleted {
			return parking.ErrNotOwner
		}
		return nil
	}); err != nil {
		span.RecordError(err)
		return 0, err
	}

	for i := 0; i < cancelled; i++ {
		s.metrics.AlertTransitioned(parking.StatusCancelled)
	}
	s.invalidateOwner(ctx, hash)
	logging.Info(
		logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.registry")),
		"identifier unregistered",
		slog.String("owner_account_id", owner),
		slog.Int("cancelled_alerts", cancelled),
	)
	return cancelled, nil
}

// cancelPendingAlerts cancels the still undelivered alerts for an identifier.
func cancelPendingAlerts(ctx context.Context, repo ports.ParkingRepository, hash string, now time.Time) (int, error) {
	pending := []parking.AlertStatus{parking.StatusSent}
	ids, err := repo.ListAlertIDsByIdentifier(ctx, hash, pending)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, id := range ids {
		at := now
		ok, err := repo.TransitionAlert(ctx, id, pending, parking.StatusCancelled, ports.AlertStamps{CancelledAt: &at})
		if err != nil {
			return cancelled, err
		}
		if ok {
			cancelled++
		}
	}
	return cancelled, nil
}
