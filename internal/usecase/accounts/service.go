// Package accounts provisions anonymous accounts and wipes them on request.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

var tracer = otel.Tracer("parkalert/usecase/accounts")

type Service struct {
	repo  ports.ParkingRepository
	uow   ports.UnitOfWork
	cache ports.Cache
	clock ports.Clock
}

func NewService(repo ports.ParkingRepository, uow ports.UnitOfWork, cache ports.Cache, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Service{
		repo:  repo,
		uow:   uow,
		cache: cache,
		clock: clock,
	}
}

// WipeResult counts what a data wipe removed.
type WipeResult struct {
	Identifiers     int64
	CancelledAlerts int
}

// Create provisions a new active account seeded with the initial reputation.
func (s *Service) Create(ctx context.Context) (parking.Account, error) {
	if ctx == nil {
		return parking.Account{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return parking.Account{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return parking.Account{}, err
	}

	ctx, span := tracer.Start(ctx, "Accounts.Create")
	defer span.End()

	now := s.clock.Now()
	account := parking.Account{
		AccountID:       uuid.NewString(),
		ReputationScore: parking.InitialReputation,
		Status:          parking.AccountActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	var created parking.Account
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.repo.CreateAccount(txCtx, account)
		return err
	}); err != nil {
		span.RecordError(err)
		return parking.Account{}, errs.Wrap(err, "create account")
	}

	logging.Info(
		logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.accounts")),
		"account provisioned",
		slog.String("account_id", created.AccountID),
	)
	return created, nil
}

func (s *Service) Get(ctx context.Context, accountID string) (parking.Account, error) {
	if ctx == nil {
		return parking.Account{}, errors.New("context is required")
	}
	if s.repo == nil {
		return parking.Account{}, errors.New("accounts repository is required")
	}
	id := strings.TrimSpace(accountID)
	if id == "" {
		return parking.Account{}, parking.ErrAccountIDRequired
	}
	return s.repo.GetAccount(ctx, id)
}

// Wipe removes an account with its identifiers and reputation history. Open
// alerts it sent or that name its identifiers are cancelled first, so no
// later transition has to pay a missing account. Alerts and security events
// stay as the counterpart's record.
func (s *Service) Wipe(ctx context.Context, accountID string) (WipeResult, error) {
	if ctx == nil {
		return WipeResult{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return WipeResult{}, errs.Wrap(err, "check context")
	}
	if err := s.ready(); err != nil {
		return WipeResult{}, err
	}
	id := strings.TrimSpace(accountID)
	if id == "" {
		return WipeResult{}, parking.ErrAccountIDRequired
	}

	ctx, span := tracer.Start(ctx, "Accounts.Wipe")
	defer span.End()

	var (
		result WipeResult
		hashes []string
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		if err := s.repo.TouchAccount(txCtx, id, now); err != nil {
			return err
		}
		open := parking.NonTerminalStatuses()
		cancel := func(alertIDs []string) error {
			for _, alertID := range alertIDs {
				at := now
				ok, err := s.repo.TransitionAlert(txCtx, alertID, open, parking.StatusCancelled, ports.AlertStamps{CancelledAt: &at})
				if err != nil {
					return err
				}
				if ok {
					result.CancelledAlerts++
				}
			}
			return nil
		}

		sent, err := s.repo.ListAlertIDsBySender(txCtx, id, open)
		if err != nil {
			return err
		}
		if err := cancel(sent); err != nil {
			return err
		}

		identifiers, err := s.repo.ListIdentifiersByOwner(txCtx, id)
		if err != nil {
			return err
		}
		for _, identifier := range identifiers {
			hashes = append(hashes, identifier.IdentifierHash)
			received, err := s.repo.ListAlertIDsByIdentifier(txCtx, identifier.IdentifierHash, open)
			if err != nil {
				return err
			}
			if err := cancel(received); err != nil {
				return err
			}
		}

		result.Identifiers, err = s.repo.DeleteIdentifiersByOwner(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteReputationEvents(txCtx, id); err != nil {
			return err
		}
		return s.repo.DeleteAccount(txCtx, id)
	}); err != nil {
		span.RecordError(err)
		return WipeResult{}, err
	}

	logCtx := logging.WithAttrs(logging.WithSpan(ctx), slog.String("component", "usecase.accounts"))
	if s.cache != nil {
		for _, hash := range hashes {
			if err := s.cache.Delete(ctx, ports.OwnerCacheKey(hash)); err != nil {
				logging.Warn(logCtx, "owner cache invalidation failed", slog.Any("err", errs.Loggable(err)))
			}
		}
	}
	logging.Info(logCtx, "account wiped",
		slog.String("account_id", id),
		slog.Int64("identifiers", result.Identifiers),
		slog.Int("cancelled_alerts", result.CancelledAlerts),
	)
	return result, nil
}

func (s *Service) ready() error {
	if s.repo == nil {
		return errors.New("accounts repository is required")
	}
	if s.uow == nil {
		return errors.New("accounts unit of work is required")
	}
	return nil
}
