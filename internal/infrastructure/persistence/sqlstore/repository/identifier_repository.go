package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parkalert/internal/domain/parking"
	"parkalert/internal/infrastructure/persistence/sqlstore/model"
	"parkalert/internal/ports"
)

func (s *Store) GetIdentifier(ctx context.Context, identifierHash string) (parking.Identifier, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return parking.Identifier{}, err
	}

	var row model.Identifier
	if err := db.Where("identifier_hash = ?", identifierHash).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return parking.Identifier{}, parking.ErrIdentifierNotFound
		}
		return parking.Identifier{}, storageError(err, "query identifier")
	}
	return mapIdentifier(row), nil
}

func (s *Store) CreateIdentifier(ctx context.Context, identifier parking.Identifier) (bool, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	row := model.Identifier{
		IdentifierHash:     identifier.IdentifierHash,
		OwnerAccountID:     identifier.OwnerAccountID,
		VerificationStatus: string(identifier.VerificationStatus),
		OwnershipProofHash: identifier.OwnershipProofHash,
		DisplayCode:        identifier.DisplayCode,
		RegisteredAt:       model.FormatTime(identifier.RegisteredAt),
		UpdatedAt:          model.FormatTime(identifier.UpdatedAt),
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, storageError(result.Error, "insert identifier")
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) TransferIdentifier(ctx context.Context, identifierHash string, expectedProof string, newOwner string, newProof string, at time.Time) (bool, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Model(&model.Identifier{}).
		Where("identifier_hash = ? AND ownership_proof_hash = ?", identifierHash, expectedProof).
		Updates(map[string]any{
			"owner_account_id":     newOwner,
			"ownership_proof_hash": newProof,
			"verification_status":  string(parking.VerificationVerified),
			"updated_at":           model.FormatTime(at),
		})
	if result.Error != nil {
		return false, storageError(result.Error, "transfer identifier")
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) DeleteIdentifier(ctx context.Context, identifierHash string, ownerAccountID string) (bool, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	result := db.Where("identifier_hash = ? AND owner_account_id = ?", identifierHash, ownerAccountID).
		Delete(&model.Identifier{})
	if result.Error != nil {
		return false, storageError(result.Error, "delete identifier")
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) DeleteIdentifiersByOwner(ctx context.Context, ownerAccountID string) (int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	result := db.Where("owner_account_id = ?", ownerAccountID).Delete(&model.Identifier{})
	if result.Error != nil {
		return 0, storageError(result.Error, "delete identifiers by owner")
	}
	return result.RowsAffected, nil
}

func (s *Store) CountIdentifiersByOwner(ctx context.Context, ownerAccountID string) (int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Identifier{}).
		Where("owner_account_id = ?", ownerAccountID).
		Count(&count).Error; err != nil {
		return 0, storageError(err, "count identifiers")
	}
	return count, nil
}

func (s *Store) ListIdentifiersByOwner(ctx context.Context, ownerAccountID string) ([]parking.Identifier, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Identifier
	if err := db.Where("owner_account_id = ?", ownerAccountID).
		Order("registered_at asc").
		Find(&rows).Error; err != nil {
		return nil, storageError(err, "query identifiers")
	}

	items := make([]parking.Identifier, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapIdentifier(row))
	}
	return items, nil
}

func (s *Store) AppendRegistrationAttempt(ctx context.Context, attempt ports.RegistrationAttempt) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.RegistrationAttempt{
		OriginProxy:    attempt.OriginProxy,
		IdentifierHash: attempt.IdentifierHash,
		AccountID:      attempt.AccountID,
		Outcome:        string(attempt.Outcome),
		CreatedAt:      model.FormatTime(attempt.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return storageError(err, "insert registration attempt")
	}
	return nil
}

func (s *Store) CountRegistrationsSince(ctx context.Context, originProxy string, since time.Time) (int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.RegistrationAttempt{}).
		Where("origin_proxy = ? AND created_at > ?", originProxy, model.FormatTime(since)).
		Count(&count).Error; err != nil {
		return 0, storageError(err, "count registration attempts")
	}
	return count, nil
}

func (s *Store) CountProofMismatchesSince(ctx context.Context, identifierHash string, since time.Time) (int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.RegistrationAttempt{}).
		Where("identifier_hash = ? AND outcome = ? AND created_at > ?", identifierHash, string(ports.RegistrationProofMismatch), model.FormatTime(since)).
		Count(&count).Error; err != nil {
		return 0, storageError(err, "count proof mismatches")
	}
	return count, nil
}

func mapIdentifier(row model.Identifier) parking.Identifier {
	return parking.Identifier{
		IdentifierHash:     row.IdentifierHash,
		OwnerAccountID:     row.OwnerAccountID,
		VerificationStatus: parking.VerificationStatus(row.VerificationStatus),
		OwnershipProofHash: row.OwnershipProofHash,
		DisplayCode:        row.DisplayCode,
		RegisteredAt:       model.ParseTime(row.RegisteredAt),
		UpdatedAt:          model.ParseTime(row.UpdatedAt),
	}
}
