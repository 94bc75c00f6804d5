package abuse

import (
	"context"
	"errors"

	"parkalert/internal/domain/parking"
	"parkalert/internal/usecase/ledger"
)

// RecordSpamReport penalises the sender of a reported alert and writes a
// suspicious_pattern event. It must run inside the transaction that cancels
// the alert, so a lost race leaves no trace.
func (s *Service) RecordSpamReport(ctx context.Context, alert parking.Alert, reporterAccountID string) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := s.ready(); err != nil {
		return err
	}

	p := s.policy.Current()
	return s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.ledger.RecordEvent(txCtx, ledger.RecordEventInput{
			AccountID:      alert.SenderAccountID,
			EventType:      parking.EventSpamReport,
			Delta:          -p.SpamReportPenalty,
			RelatedAlertID: alert.AlertID,
		}); err != nil {
			return err
		}
		_, err := s.appendEvent(txCtx, parking.SecurityEvent{
			AccountID: alert.SenderAccountID,
			EventType: parking.SecuritySuspiciousPattern,
			Severity:  parking.SeverityMedium,
			Details: map[string]any{
				"reason":      "spam_report",
				"alert_id":    alert.AlertID,
				"reported_by": reporterAccountID,
			},
			ActionTaken: parking.ActionAlertCancelled,
		})
		return err
	})
}
