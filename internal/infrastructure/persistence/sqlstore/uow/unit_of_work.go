package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm.
type UnitOfWork struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewUnitOfWork bounds every outermost transaction by timeout; zero disables
// the bound.
func NewUnitOfWork(db *gorm.DB, timeout time.Duration) *UnitOfWork {
	return &UnitOfWork{db: db, timeout: timeout}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if ports.InTx(ctx) {
		return fn(ctx)
	}

	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
	return txError(err)
}

// txError marks begin and commit failures caused by the deadline as
// retryable storage outages. Errors returned by fn pass through unchanged.
func txError(err error) error {
	if err == nil || errors.Is(err, parking.ErrStorageUnavailable) {
		return err
	}
	if errors.Is(err, sql.ErrTxDone) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Temporary(errs.WithStack(fmt.Errorf("transaction: %w: %w", parking.ErrStorageUnavailable, err)))
	}
	return err
}
