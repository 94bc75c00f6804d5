package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/abuse"
)

var tracer = otel.Tracer("parkalert/usecase/registry")

// ownerCacheTTL bounds how long an anonymous lookup may serve a stale owner
// when an invalidation is lost.
const ownerCacheTTL = 30 * time.Second

type Service struct {
	repo    ports.ParkingRepository
	uow     ports.UnitOfWork
	abuse   *abuse.Service
	cache   ports.Cache
	policy  ports.PolicySource
	clock   ports.Clock
	metrics ports.Metrics
}

func NewService(
	repo ports.ParkingRepository,
	uow ports.UnitOfWork,
	abuseService *abuse.Service,
	cache ports.Cache,
	policy ports.PolicySource,
	clock ports.Clock,
	metrics ports.Metrics,
) *Service {
	if policy == nil {
		policy = ports.StaticPolicy(parking.DefaultPolicy())
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		repo:    repo,
		uow:     uow,
		abuse:   abuseService,
		cache:   cache,
		policy:  policy,
		clock:   clock,
		metrics: metrics,
	}
}

type RegisterInput struct {
	IdentifierHash string
	OwnerAccountID string
	ProofHash      string
	DisplayCode    string
	// OriginProxy keys the registration velocity gate, usually an HMAC of
	// the caller's network origin. Empty falls back to the account id.
	OriginProxy string
}

type RegisterResult struct {
	Identifier  parking.Identifier
	Created     bool
	Transferred bool
}

type TransferInput struct {
	IdentifierHash    string
	NewOwnerAccountID string
	ProofHash         string
	OriginProxy       string
}

func (s *Service) ready() error {
	if s.repo == nil {
		return errors.New("registry repository is required")
	}
	if s.uow == nil {
		return errors.New("registry unit of work is required")
	}
	return nil
}

func originOrAccount(origin string, accountID string) string {
	if origin != "" {
		return origin
	}
	return "account:" + accountID
}

func (s *Service) invalidateOwner(ctx context.Context, identifierHash string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, ports.OwnerCacheKey(identifierHash)); err != nil {
		logging.Warn(
			logging.WithAttrs(ctx, slog.String("component", "usecase.registry")),
			"owner cache invalidation failed",
			slog.String("identifier_hash", identifierHash),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}

// recordAttempt stores the attempt and runs the detection gates in their own
// transaction so a rejected registration still counts. Detection never fails
// the caller.
func (s *Service) recordAttempt(ctx context.Context, attempt ports.RegistrationAttempt) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.registry"))
	attempt.CreatedAt = s.clock.Now()

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.repo.AppendRegistrationAttempt(txCtx, attempt)
	}); err != nil {
		logging.Warn(logCtx, "record registration attempt failed", slog.Any("err", errs.Loggable(err)))
		return
	}
	if s.abuse == nil {
		return
	}

	p := s.policy.Current()
	if _, err := s.abuse.CheckRegistrationVelocity(
		ctx,
		attempt.OriginProxy,
		attempt.AccountID,
		p.RegistrationVelocityWindow.Duration(),
		p.RegistrationVelocityMax,
	); err != nil {
		logging.Warn(logCtx, "registration velocity check failed", slog.Any("err", errs.Loggable(err)))
	}
	if attempt.Outcome != ports.RegistrationProofMismatch {
		return
	}
	if _, err := s.abuse.CheckProofMismatches(
		ctx,
		attempt.IdentifierHash,
		attempt.AccountID,
		p.ProofMismatchWindow.Duration(),
		p.ProofMismatchMax,
	); err != nil {
		logging.Warn(logCtx, "proof mismatch check failed", slog.Any("err", errs.Loggable(err)))
	}
}
