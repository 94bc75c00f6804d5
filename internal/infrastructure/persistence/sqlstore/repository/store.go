package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/infrastructure/persistence/sqlstore/model"
	"parkalert/internal/ports"
)

// Store implements ports.ParkingRepository with gorm. It works on SQLite and
// Postgres; every timestamp column holds model.TimeLayout text.
type Store struct {
	db *gorm.DB
}

var _ ports.ParkingRepository = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return s.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// storageError wraps err with msg and turns timeouts and lock contention
// into a retryable ErrStorageUnavailable.
func storageError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if Unavailable(err) {
		return errs.Temporary(fmt.Errorf("%s: %w: %w", msg, parking.ErrStorageUnavailable, err))
	}
	return errs.Wrap(err, msg)
}

// Unavailable reports whether err looks like a busy or timed out store.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, parking.ErrStorageUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"database is locked", "sqlite_busy", "database table is locked", "deadlock detected", "could not serialize access", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func statusStrings(statuses []parking.AlertStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func applySecurityFilter(query *gorm.DB, filter ports.SecurityEventFilter) *gorm.DB {
	if accountID := strings.TrimSpace(filter.AccountID); accountID != "" {
		query = query.Where("account_id = ?", accountID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", string(filter.EventType))
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at > ?", model.FormatTime(filter.Since))
	}
	return query
}
