package router

import (
	"context"
	"errors"
	"strings"

	"parkalert/internal/domain/parking"
)

// Get returns an alert to one of its two participants.
func (s *Service) Get(ctx context.Context, alertID string, callerAccountID string) (parking.Alert, error) {
	if ctx == nil {
		return parking.Alert{}, errors.New("context is required")
	}
	if s.repo == nil {
		return parking.Alert{}, errors.New("router repository is required")
	}
	alertID = strings.TrimSpace(alertID)
	if alertID == "" {
		return parking.Alert{}, parking.ErrAlertIDRequired
	}

	alert, err := s.repo.GetAlert(ctx, alertID)
	if err != nil {
		return parking.Alert{}, err
	}
	if !alert.IsParticipant(strings.TrimSpace(callerAccountID)) {
		return parking.Alert{}, parking.ErrNotParticipant
	}
	return alert, nil
}
