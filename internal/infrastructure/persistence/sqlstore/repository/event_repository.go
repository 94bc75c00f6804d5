package repository

import (
	"context"
	"encoding/json"
	"strings"

	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/infrastructure/persistence/sqlstore/model"
	"parkalert/internal/ports"
)

func (s *Store) AppendReputationEvent(ctx context.Context, event parking.ReputationEvent) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.ReputationEvent{
		EventID:        event.EventID,
		AccountID:      event.AccountID,
		EventType:      string(event.EventType),
		Delta:          event.Delta,
		AppliedDelta:   event.AppliedDelta,
		RelatedAlertID: event.RelatedAlertID,
		CreatedAt:      model.FormatTime(event.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return storageError(err, "insert reputation event")
	}
	return nil
}

// ListReputationEvents returns the newest events first.
func (s *Store) ListReputationEvents(ctx context.Context, accountID string, limit int) ([]parking.ReputationEvent, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.ReputationEvent{}).
		Where("account_id = ?", accountID).
		Order("created_at desc").
		Order("event_id desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.ReputationEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, storageError(err, "query reputation events")
	}

	items := make([]parking.ReputationEvent, 0, len(rows))
	for _, row := range rows {
		items = append(items, parking.ReputationEvent{
			EventID:        row.EventID,
			AccountID:      row.AccountID,
			EventType:      parking.EventType(row.EventType),
			Delta:          row.Delta,
			AppliedDelta:   row.AppliedDelta,
			RelatedAlertID: row.RelatedAlertID,
			CreatedAt:      model.ParseTime(row.CreatedAt),
		})
	}
	return items, nil
}

// CountReputationEvents counts events of an account; empty filters match all.
func (s *Store) CountReputationEvents(ctx context.Context, accountID string, eventType parking.EventType, relatedAlertID string) (int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	query := db.Model(&model.ReputationEvent{}).Where("account_id = ?", accountID)
	if eventType != "" {
		query = query.Where("event_type = ?", string(eventType))
	}
	if relatedAlertID != "" {
		query = query.Where("related_alert_id = ?", relatedAlertID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, storageError(err, "count reputation events")
	}
	return count, nil
}

func (s *Store) SumReputationDeltas(ctx context.Context, accountID string) (int64, int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, 0, err
	}

	var sums struct {
		Delta   int64
		Applied int64
	}
	if err := db.Model(&model.ReputationEvent{}).
		Select("COALESCE(SUM(delta), 0) AS delta, COALESCE(SUM(applied_delta), 0) AS applied").
		Where("account_id = ?", accountID).
		Scan(&sums).Error; err != nil {
		return 0, 0, storageError(err, "sum reputation deltas")
	}
	return sums.Delta, sums.Applied, nil
}

func (s *Store) DeleteReputationEvents(ctx context.Context, accountID string) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Where("account_id = ?", accountID).Delete(&model.ReputationEvent{}).Error; err != nil {
		return storageError(err, "delete reputation events")
	}
	return nil
}

func (s *Store) AppendSecurityEvent(ctx context.Context, event parking.SecurityEvent) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	details := "{}"
	if len(event.Details) > 0 {
		raw, err := json.Marshal(event.Details)
		if err != nil {
			return errs.Wrap(err, "marshal security event details")
		}
		details = string(raw)
	}

	row := model.SecurityEvent{
		EventID:     event.EventID,
		AccountID:   event.AccountID,
		EventType:   string(event.EventType),
		Severity:    string(event.Severity),
		DetailsJSON: details,
		ActionTaken: event.ActionTaken,
		CreatedAt:   model.FormatTime(event.CreatedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return storageError(err, "insert security event")
	}
	return nil
}

// ListSecurityEvents returns the newest events first.
func (s *Store) ListSecurityEvents(ctx context.Context, filter ports.SecurityEventFilter) ([]parking.SecurityEvent, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := applySecurityFilter(db.Model(&model.SecurityEvent{}), filter).
		Order("created_at desc").
		Order("event_id desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.SecurityEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, storageError(err, "query security events")
	}

	items := make([]parking.SecurityEvent, 0, len(rows))
	for _, row := range rows {
		var details map[string]any
		if strings.TrimSpace(row.DetailsJSON) != "" {
			if err := json.Unmarshal([]byte(row.DetailsJSON), &details); err != nil {
				return nil, errs.Wrapf(err, "decode security event %s details", row.EventID)
			}
		}
		items = append(items, parking.SecurityEvent{
			EventID:     row.EventID,
			AccountID:   row.AccountID,
			EventType:   parking.SecurityEventType(row.EventType),
			Severity:    parking.Severity(row.Severity),
			Details:     details,
			ActionTaken: row.ActionTaken,
			CreatedAt:   model.ParseTime(row.CreatedAt),
		})
	}
	return items, nil
}

func (s *Store) CountSecurityEvents(ctx context.Context, filter ports.SecurityEventFilter) (int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := applySecurityFilter(db.Model(&model.SecurityEvent{}), filter).Count(&count).Error; err != nil {
		return 0, storageError(err, "count security events")
	}
	return count, nil
}
