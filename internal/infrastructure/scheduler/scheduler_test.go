package scheduler

import (
	"context"
	"errors"
	"testing"
)

type stubSweeper struct {
	batches []int
	err     error
	calls   int
}

func (s *stubSweeper) ExpireDue(_ context.Context, limit int) (int, error) {
	s.calls++
	if s.calls > len(s.batches) {
		return 0, s.err
	}
	n := s.batches[s.calls-1]
	if n > limit {
		n = limit
	}
	return n, nil
}

func TestRunOnceDrainsFullBatches(t *testing.T) {
	sweeper := &stubSweeper{batches: []int{10, 10, 3}}
	sweep, err := NewExpirySweep(sweeper, "@every 1m", 10)
	if err != nil {
		t.Fatalf("NewExpirySweep() error = %v", err)
	}

	if got := sweep.RunOnce(context.Background()); got != 23 {
		t.Fatalf("RunOnce() = %d, want 23", got)
	}
	if sweeper.calls != 3 {
		t.Fatalf("ExpireDue calls = %d, want 3", sweeper.calls)
	}
}

func TestRunOnceStopsOnError(t *testing.T) {
	sweeper := &stubSweeper{batches: []int{10}, err: errors.New("locked")}
	sweep, err := NewExpirySweep(sweeper, "", 10)
	if err != nil {
		t.Fatalf("NewExpirySweep() error = %v", err)
	}
	if got := sweep.RunOnce(context.Background()); got != 10 {
		t.Fatalf("RunOnce() = %d, want 10", got)
	}
}

func TestNewExpirySweepRejectsBadSpec(t *testing.T) {
	if _, err := NewExpirySweep(&stubSweeper{}, "every minute", 10); err == nil {
		t.Fatalf("NewExpirySweep() expected error for bad spec")
	}
}
