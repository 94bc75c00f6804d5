package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/infrastructure/persistence/sqlstore/model"
)

func (s *Store) CreateAccount(ctx context.Context, account parking.Account) (parking.Account, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return parking.Account{}, err
	}

	row := model.Account{
		AccountID:       account.AccountID,
		ReputationScore: account.ReputationScore,
		Status:          string(account.Status),
		CreatedAt:       model.FormatTime(account.CreatedAt),
		UpdatedAt:       model.FormatTime(account.UpdatedAt),
		LastSeenAt:      model.FormatTimePtr(account.LastSeenAt),
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return parking.Account{}, storageError(result.Error, "insert account")
	}
	if result.RowsAffected == 0 {
		return parking.Account{}, errs.Wrapf(gorm.ErrDuplicatedKey, "account %s", account.AccountID)
	}
	return mapAccount(row), nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (parking.Account, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return parking.Account{}, err
	}

	var row model.Account
	if err := db.Where("account_id = ?", accountID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return parking.Account{}, parking.ErrAccountNotFound
		}
		return parking.Account{}, storageError(err, "query account")
	}
	return mapAccount(row), nil
}

func (s *Store) TouchAccount(ctx context.Context, accountID string, at time.Time) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Account{}).
		Where("account_id = ?", accountID).
		Update("last_seen_at", model.FormatTime(at))
	if result.Error != nil {
		return storageError(result.Error, "touch account")
	}
	if result.RowsAffected == 0 {
		return parking.ErrAccountNotFound
	}
	return nil
}

func (s *Store) SetReputationScore(ctx context.Context, accountID string, expected int, next int, at time.Time) (bool, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Account{}).
		Where("account_id = ? AND reputation_score = ?", accountID, expected).
		Updates(map[string]any{
			"reputation_score": next,
			"updated_at":       model.FormatTime(at),
		})
	if result.Error != nil {
		return false, storageError(result.Error, "update reputation score")
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) SetAccountStatus(ctx context.Context, accountID string, status parking.AccountStatus, at time.Time) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Account{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": model.FormatTime(at),
		})
	if result.Error != nil {
		return storageError(result.Error, "update account status")
	}
	if result.RowsAffected == 0 {
		return parking.ErrAccountNotFound
	}
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, accountID string) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Where("account_id = ?", accountID).Delete(&model.Account{})
	if result.Error != nil {
		return storageError(result.Error, "delete account")
	}
	if result.RowsAffected == 0 {
		return parking.ErrAccountNotFound
	}
	return nil
}

func mapAccount(row model.Account) parking.Account {
	return parking.Account{
		AccountID:       row.AccountID,
		ReputationScore: row.ReputationScore,
		Status:          parking.AccountStatus(row.Status),
		CreatedAt:       model.ParseTime(row.CreatedAt),
		UpdatedAt:       model.ParseTime(row.UpdatedAt),
		LastSeenAt:      model.ParseTimePtr(row.LastSeenAt),
	}
}
