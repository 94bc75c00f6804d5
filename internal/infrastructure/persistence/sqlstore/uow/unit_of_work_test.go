package uow

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/infrastructure/persistence/sqlstore/sqlstoretest"
)

func TestWithTxDeadlineIsTransient(t *testing.T) {
	unit := NewUnitOfWork(sqlstoretest.Open(t), 50*time.Millisecond)

	err := unit.WithTx(context.Background(), func(context.Context) error {
		time.Sleep(120 * time.Millisecond)
		return nil
	})
	if err == nil {
		t.Fatalf("WithTx() error = nil, want deadline failure")
	}
	if !errors.Is(err, parking.ErrStorageUnavailable) {
		t.Fatalf("WithTx() error = %v, want ErrStorageUnavailable", err)
	}
	if parking.KindOf(err) != parking.KindTransient || !errs.IsTemporary(err) {
		t.Fatalf("WithTx() kind = %s, temporary = %v", parking.KindOf(err), errs.IsTemporary(err))
	}
	var stack *errs.StackError
	if !errors.As(err, &stack) || len(stack.Stack()) == 0 {
		t.Fatalf("WithTx() error carries no stack: %v", err)
	}
}

func TestWithTxKeepsCallbackErrors(t *testing.T) {
	unit := NewUnitOfWork(sqlstoretest.Open(t), time.Second)

	err := unit.WithTx(context.Background(), func(context.Context) error {
		return parking.ErrNotReceiver
	})
	if !errors.Is(err, parking.ErrNotReceiver) || errs.IsTemporary(err) {
		t.Fatalf("WithTx() error = %v, want ErrNotReceiver", err)
	}
}
