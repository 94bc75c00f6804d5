package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
)

// RecordEvent appends one ledger line and moves the score in the same
// transaction. The score never drops below zero; AppliedDelta keeps what
// actually moved. Called with a transaction in ctx it joins that transaction.
func (s *Service) RecordEvent(ctx context.Context, input RecordEventInput) (parking.ReputationEvent, error) {
	if ctx == nil {
		return parking.ReputationEvent{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return parking.ReputationEvent{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return parking.ReputationEvent{}, err
	}

	accountID := strings.TrimSpace(input.AccountID)
	if accountID == "" {
		return parking.ReputationEvent{}, parking.ErrAccountIDRequired
	}
	eventType, err := parking.ParseEventType(string(input.EventType))
	if err != nil {
		return parking.ReputationEvent{}, err
	}

	ctx, span := tracer.Start(ctx, "Ledger.RecordEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event_type", string(eventType)), attribute.Int("delta", input.Delta))

	var event parking.ReputationEvent
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		if err := s.repo.TouchAccount(txCtx, accountID, now); err != nil {
			return err
		}

		applied, err := s.swapScore(txCtx, accountID, input.Delta)
		if err != nil {
			return err
		}

		event = parking.ReputationEvent{
			EventID:        uuid.NewString(),
			AccountID:      accountID,
			EventType:      eventType,
			Delta:          input.Delta,
			AppliedDelta:   applied,
			RelatedAlertID: strings.TrimSpace(input.RelatedAlertID),
			CreatedAt:      now,
		}
		return s.repo.AppendReputationEvent(txCtx, event)
	}); err != nil {
		span.RecordError(err)
		return parking.ReputationEvent{}, err
	}

	s.metrics.ReputationRecorded(event.EventType, event.AppliedDelta)
	logging.Debug(
		logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.ledger")),
		"reputation event recorded",
		slog.String("account_id", accountID),
		slog.String("event_type", string(eventType)),
		slog.Int("delta", event.Delta),
		slog.Int("applied", event.AppliedDelta),
	)
	return event, nil
}

func (s *Service) swapScore(ctx context.Context, accountID string, delta int) (int, error) {
	for attempt := 0; attempt < scoreSwapAttempts; attempt++ {
		account, err := s.repo.GetAccount(ctx, accountID)
		if err != nil {
			return 0, err
		}
		next, applied := parking.ApplyDelta(account.ReputationScore, delta)
		if applied == 0 {
			return 0, nil
		}
		swapped, err := s.repo.SetReputationScore(ctx, accountID, account.ReputationScore, next, s.clock.Now())
		if err != nil {
			return 0, err
		}
		if swapped {
			return applied, nil
		}
	}
	return 0, fmt.Errorf("%w: account %s", parking.ErrReputationConflict, accountID)
}
