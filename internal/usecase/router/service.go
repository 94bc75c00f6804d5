// Package router drives alerts through their lifecycle and pays out
// reputation on resolution.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/abuse"
	"parkalert/internal/usecase/ledger"
)

var tracer = otel.Tracer("parkalert/usecase/router")

const (
	defaultSweepLimit = 100
	maxSweepLimit     = 1000
)

type Service struct {
	repo    ports.ParkingRepository
	uow     ports.UnitOfWork
	ledger  *ledger.Service
	abuse   *abuse.Service
	push    ports.PushSender
	policy  ports.PolicySource
	clock   ports.Clock
	metrics ports.Metrics
}

type Deps struct {
	Repo    ports.ParkingRepository
	UoW     ports.UnitOfWork
	Ledger  *ledger.Service
	Abuse   *abuse.Service
	Push    ports.PushSender
	Policy  ports.PolicySource
	Clock   ports.Clock
	Metrics ports.Metrics
}

// NewService wires the router. Push, Policy, Clock and Metrics are optional.
func NewService(deps Deps) *Service {
	if deps.Policy == nil {
		deps.Policy = ports.StaticPolicy(parking.DefaultPolicy())
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}
	return &Service{
		repo:    deps.Repo,
		uow:     deps.UoW,
		ledger:  deps.Ledger,
		abuse:   deps.Abuse,
		push:    deps.Push,
		policy:  deps.Policy,
		clock:   deps.Clock,
		metrics: deps.Metrics,
	}
}

type SendInput struct {
	SenderAccountID      string
	TargetIdentifierHash string
	Urgency              string
	Message              string
}

func (s *Service) ready() error {
	if s.repo == nil {
		return errors.New("router repository is required")
	}
	if s.uow == nil {
		return errors.New("router unit of work is required")
	}
	if s.ledger == nil {
		return errors.New("router ledger is required")
	}
	if s.abuse == nil {
		return errors.New("router abuse detector is required")
	}
	return nil
}

func (s *Service) logContext(ctx context.Context, alertID string) context.Context {
	return logging.WithAttrs(
		logging.WithSpan(ctx),
		slog.String("component", "usecase.router"),
		slog.String("alert_id", alertID),
	)
}

func invalidState(alert parking.Alert, action parking.AlertAction) error {
	return fmt.Errorf("%w: cannot %s a %s alert", parking.ErrInvalidState, action, alert.Status)
}
