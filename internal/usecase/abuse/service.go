package abuse

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/ledger"
)

var tracer = otel.Tracer("parkalert/usecase/abuse")

const defaultListLimit = 100

type Service struct {
	repo    ports.ParkingRepository
	uow     ports.UnitOfWork
	ledger  *ledger.Service
	policy  ports.PolicySource
	clock   ports.Clock
	metrics ports.Metrics
}

func NewService(
	repo ports.ParkingRepository,
	uow ports.UnitOfWork,
	ledgerService *ledger.Service,
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
		ledger:  ledgerService,
		policy:  policy,
		clock:   clock,
		metrics: metrics,
	}
}

func (s *Service) ready() error {
	if s.repo == nil {
		return errors.New("abuse repository is required")
	}
	if s.uow == nil {
		return errors.New("abuse unit of work is required")
	}
	if s.ledger == nil {
		return errors.New("abuse ledger is required")
	}
	return nil
}

// appendEvent writes a security event in the caller's transaction.
func (s *Service) appendEvent(ctx context.Context, event parking.SecurityEvent) (parking.SecurityEvent, error) {
	event.EventID = uuid.NewString()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock.Now()
	}
	if err := s.repo.AppendSecurityEvent(ctx, event); err != nil {
		return parking.SecurityEvent{}, err
	}
	s.metrics.SecurityEventRecorded(event.EventType, event.Severity)
	return event, nil
}
