package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// Register binds an identifier to its owner. Re-registering one's own
// identifier is a no-op; a matching proof on someone else's identifier moves
// it; anything else is ErrAlreadyRegistered and nothing changes.
func (s *Service) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	if ctx == nil {
		return RegisterResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return RegisterResult{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return RegisterResult{}, err
	}

	hash, err := parking.NormalizeIdentifierHash(input.IdentifierHash)
	if err != nil {
		return RegisterResult{}, err
	}
	proof, err := parking.NormalizeProofHash(input.ProofHash)
	if err != nil {
		return RegisterResult{}, err
	}
	displayCode, err := parking.NormalizeDisplayCode(input.DisplayCode)
	if err != nil {
		return RegisterResult{}, err
	}
	if displayCode == "" {
		displayCode = parking.PlateDisplayCode(hash)
	}
	owner := strings.TrimSpace(input.OwnerAccountID)
	if owner == "" {
		return RegisterResult{}, parking.ErrAccountIDRequired
	}

	ctx, span := tracer.Start(ctx, "Registry.Register")
	defer span.End()

	var result RegisterResult
	outcome := ports.RegistrationOutcome("")
	txErr := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		if err := s.repo.TouchAccount(txCtx, owner, now); err != nil {
			return err
		}
		limit := s.policy.Current().MaxIdentifiersPerOwner

		existing, err := s.repo.GetIdentifier(txCtx, hash)
		if errors.Is(err, parking.ErrIdentifierNotFound) {
			if err := s.checkLimit(txCtx, owner, limit); err != nil {
				outcome = ports.RegistrationLimitReached
				return err
			}
			identifier := parking.Identifier{
				IdentifierHash:     hash,
				OwnerAccountID:     owner,
				VerificationStatus: parking.VerificationVerified,
				OwnershipProofHash: proof,
				DisplayCode:        displayCode,
				RegisteredAt:       now,
				UpdatedAt:          now,
			}
			var created bool
			created, err = s.repo.CreateIdentifier(txCtx, identifier)
			if err != nil {
				return err
			}
			if created {
				outcome = ports.RegistrationCreated
				result = RegisterResult{Identifier: identifier, Created: true}
				return nil
			}
			// Lost the insert race; judge against the winner.
			existing, err = s.repo.GetIdentifier(txCtx, hash)
		}
		if err != nil {
			return err
		}

		if existing.OwnerAccountID == owner {
			outcome = ports.RegistrationUnchanged
			result = RegisterResult{Identifier: existing}
			return nil
		}
		if !parking.ProofMatches(existing.OwnershipProofHash, proof) {
			outcome = ports.RegistrationProofMismatch
			return parking.ErrAlreadyRegistered
		}
		if err := s.checkLimit(txCtx, owner, limit); err != nil {
			outcome = ports.RegistrationLimitReached
			return err
		}
		moved, err := s.repo.TransferIdentifier(txCtx, hash, existing.OwnershipProofHash, owner, proof, now)
		if err != nil {
			return err
		}
		if !moved {
			outcome = ports.RegistrationProofMismatch
			return parking.ErrAlreadyRegistered
		}
		updated, err := s.repo.GetIdentifier(txCtx, hash)
		if err != nil {
			return err
		}
		outcome = ports.RegistrationTransferred
		result = RegisterResult{Identifier: updated, Transferred: true}
		return nil
	})

	if outcome != "" {
		s.recordAttempt(ctx, ports.RegistrationAttempt{
			OriginProxy:    originOrAccount(strings.TrimSpace(input.OriginProxy), owner),
			IdentifierHash: hash,
			AccountID:      owner,
			Outcome:        outcome,
		})
	}
	if txErr != nil {
		span.RecordError(txErr)
		return RegisterResult{}, txErr
	}

	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if result.Transferred {
		s.invalidateOwner(ctx, hash)
	}
	logging.Info(
		logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.registry")),
		"identifier registered",
		slog.String("owner_account_id", owner),
		slog.String("outcome", string(outcome)),
	)
	return result, nil
}

func (s *Service) checkLimit(ctx context.Context, owner string, limit int) error {
	count, err := s.repo.CountIdentifiersByOwner(ctx, owner)
	if err != nil {
		return err
	}
	if count >= int64(limit) {
		return fmt.Errorf("%w: limit is %d", parking.ErrTooManyIdentifiers, limit)
	}
	return nil
}
