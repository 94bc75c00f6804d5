package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"parkalert/internal/domain/parking"
	"parkalert/internal/infrastructure/persistence/sqlstore/model"
	"parkalert/internal/ports"
)

func (s *Store) CreateAlert(ctx context.Context, alert parking.Alert) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	row := model.Alert{
		AlertID:              alert.AlertID,
		SenderAccountID:      alert.SenderAccountID,
		ReceiverAccountID:    alert.ReceiverAccountID,
		TargetIdentifierHash: alert.TargetIdentifierHash,
		Urgency:              string(alert.Urgency),
		Message:              alert.Message,
		Response:             alert.Response,
		Status:               string(alert.Status),
		Flagged:              alert.Flagged,
		SentAt:               model.FormatTime(alert.SentAt),
		DeliveredAt:          model.FormatTimePtr(alert.DeliveredAt),
		AcknowledgedAt:       model.FormatTimePtr(alert.AcknowledgedAt),
		ResolvedAt:           model.FormatTimePtr(alert.ResolvedAt),
		CancelledAt:          model.FormatTimePtr(alert.CancelledAt),
		ExpiredAt:            model.FormatTimePtr(alert.ExpiredAt),
		ExpiresAt:            model.FormatTime(alert.ExpiresAt),
		PushSent:             alert.PushSent,
		PushSentAt:           model.FormatTimePtr(alert.PushSentAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return storageError(err, "insert alert")
	}
	return nil
}

func (s *Store) GetAlert(ctx context.Context, alertID string) (parking.Alert, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return parking.Alert{}, err
	}

	var row model.Alert
	if err := db.Where("alert_id = ?", alertID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return parking.Alert{}, parking.ErrAlertNotFound
		}
		return parking.Alert{}, storageError(err, "query alert")
	}
	return mapAlert(row), nil
}

func (s *Store) TransitionAlert(ctx context.Context, alertID string, from []parking.AlertStatus, to parking.AlertStatus, stamps ports.AlertStamps) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	updates := map[string]any{"status": string(to)}
	setStamp := func(column string, at *time.Time) {
		if at != nil {
			updates[column] = model.FormatTime(*at)
		}
	}
	setStamp("delivered_at", stamps.DeliveredAt)
	setStamp("acknowledged_at", stamps.AcknowledgedAt)
	setStamp("resolved_at", stamps.ResolvedAt)
	setStamp("cancelled_at", stamps.CancelledAt)
	setStamp("expired_at", stamps.ExpiredAt)
	if stamps.Response != nil {
		updates["response"] = *stamps.Response
	}

	result := db.Model(&model.Alert{}).
		Where("alert_id = ? AND status IN ?", alertID, statusStrings(from)).
		Updates(updates)
	if result.Error != nil {
		return false, storageError(result.Error, "transition alert")
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) MarkPushSent(ctx context.Context, alertID string, at time.Time) error {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return err
	}

	if err := db.Model(&model.Alert{}).
		Where("alert_id = ?", alertID).
		Updates(map[string]any{
			"push_sent":    true,
			"push_sent_at": model.FormatTime(at),
		}).Error; err != nil {
		return storageError(err, "mark push sent")
	}
	return nil
}

func (s *Store) CountAlertsBySenderSince(ctx context.Context, senderAccountID string, since time.Time) (int64, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Alert{}).
		Where("sender_account_id = ? AND sent_at > ?", senderAccountID, model.FormatTime(since)).
		Count(&count).Error; err != nil {
		return 0, storageError(err, "count sender alerts")
	}
	return count, nil
}

func (s *Store) ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]parking.Alert, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Alert{}).
		Where("status IN ? AND expires_at < ?", statusStrings(parking.NonTerminalStatuses()), model.FormatTime(now)).
		Order("expires_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Alert
	if err := query.Find(&rows).Error; err != nil {
		return nil, storageError(err, "query due alerts")
	}

	items := make([]parking.Alert, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAlert(row))
	}
	return items, nil
}

func (s *Store) ListAlertIDsByIdentifier(ctx context.Context, identifierHash string, statuses []parking.AlertStatus) ([]string, error) {
	return s.listAlertIDs(ctx, "target_identifier_hash", identifierHash, statuses)
}

func (s *Store) ListAlertIDsBySender(ctx context.Context, senderAccountID string, statuses []parking.AlertStatus) ([]string, error) {
	return s.listAlertIDs(ctx, "sender_account_id", senderAccountID, statuses)
}

func (s *Store) listAlertIDs(ctx context.Context, column string, value string, statuses []parking.AlertStatus) ([]string, error) {
	db, err := s.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Alert{}).Where(column+" = ?", value)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(statuses))
	}

	var ids []string
	if err := query.Order("sent_at asc").Pluck("alert_id", &ids).Error; err != nil {
		return nil, storageError(err, "query alerts by "+column)
	}
	return ids, nil
}

func mapAlert(row model.Alert) parking.Alert {
	return parking.Alert{
		AlertID:              row.AlertID,
		SenderAccountID:      row.SenderAccountID,
		ReceiverAccountID:    row.ReceiverAccountID,
		TargetIdentifierHash: row.TargetIdentifierHash,
		Urgency:              parking.Urgency(row.Urgency),
		Message:              row.Message,
		Response:             row.Response,
		Status:               parking.AlertStatus(row.Status),
		Flagged:              row.Flagged,
		SentAt:               model.ParseTime(row.SentAt),
		DeliveredAt:          model.ParseTimePtr(row.DeliveredAt),
		AcknowledgedAt:       model.ParseTimePtr(row.AcknowledgedAt),
		ResolvedAt:           model.ParseTimePtr(row.ResolvedAt),
		CancelledAt:          model.ParseTimePtr(row.CancelledAt),
		ExpiredAt:            model.ParseTimePtr(row.ExpiredAt),
		ExpiresAt:            model.ParseTime(row.ExpiresAt),
		PushSent:             row.PushSent,
		PushSentAt:           model.ParseTimePtr(row.PushSentAt),
	}
}
