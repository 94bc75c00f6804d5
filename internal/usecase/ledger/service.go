package ledger

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel"

	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
)

var tracer = otel.Tracer("parkalert/usecase/ledger")

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	// scoreSwapAttempts bounds the compare-and-swap retries on one score.
	scoreSwapAttempts = 3
)

type Service struct {
	repo    ports.ParkingRepository
	uow     ports.UnitOfWork
	clock   ports.Clock
	metrics ports.Metrics
}

// NewService wires the reputation ledger. clock and metrics may be nil.
func NewService(repo ports.ParkingRepository, uow ports.UnitOfWork, clock ports.Clock, metrics ports.Metrics) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Service{
		repo:    repo,
		uow:     uow,
		clock:   clock,
		metrics: metrics,
	}
}

type RecordEventInput struct {
	AccountID      string
	EventType      parking.EventType
	Delta          int
	RelatedAlertID string
}

type Summary struct {
	AccountID      string
	Score          int
	Status         parking.AccountStatus
	Tier           parking.Tier
	DailyQuota     int
	UsedToday      int
	RemainingToday int
	QuotaResetsAt  time.Time
}

// Audit compares the stored score with the ledger.
type Audit struct {
	AccountID     string
	Score         int
	Expected      int
	RequestedSum  int64
	AppliedSum    int64
	Events        int64
	Consistent    bool
	ClampedPoints int64
}

func (s *Service) ready() error {
	if s.repo == nil {
		return errors.New("ledger repository is required")
	}
	if s.uow == nil {
		return errors.New("ledger unit of work is required")
	}
	return nil
}
