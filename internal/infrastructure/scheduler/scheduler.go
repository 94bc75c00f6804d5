package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
)

const DefaultExpireSpec = "@every 1m"

// Sweeper expires overdue alerts. router.Service implements it.
type Sweeper interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// ExpirySweep runs Sweeper.ExpireDue on a cron schedule. Runs never overlap.
type ExpirySweep struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	batch   int
}

func NewExpirySweep(sweeper Sweeper, spec string, batch int) (*ExpirySweep, error) {
	if sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultExpireSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, errs.Wrapf(err, "parse expire schedule %q", spec)
	}
	if batch <= 0 {
		batch = 100
	}

	return &ExpirySweep{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper: sweeper,
		spec:    spec,
		batch:   batch,
	}, nil
}

// Start schedules the sweep. Each run inherits ctx values but not its deadline.
func (s *ExpirySweep) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "infrastructure.scheduler"), slog.String("spec", s.spec))

	if _, err := s.cron.AddFunc(s.spec, func() {
		s.RunOnce(context.WithoutCancel(logCtx))
	}); err != nil {
		return errs.Wrap(err, "schedule expiry sweep")
	}
	s.cron.Start()
	logging.Info(logCtx, "expiry sweep scheduled", slog.Int("batch", s.batch))
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *ExpirySweep) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce drains every due batch.
func (s *ExpirySweep) RunOnce(ctx context.Context) int {
	total := 0
	for {
		n, err := s.sweeper.ExpireDue(ctx, s.batch)
		total += n
		if err != nil {
			logging.Error(ctx, "expiry sweep failed", slog.Int("expired", total), slog.Any("err", errs.Loggable(err)))
			return total
		}
		if n < s.batch {
			break
		}
	}
	if total > 0 {
		logging.Info(ctx, "expiry sweep completed", slog.Int("expired", total))
	}
	return total
}
