package parking

import (
	"fmt"
	"strings"
)

type AlertStatus string

const (
	StatusSent         AlertStatus = "sent"
	StatusDelivered    AlertStatus = "delivered"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusResolved     AlertStatus = "resolved"
	StatusExpired      AlertStatus = "expired"
	StatusCancelled    AlertStatus = "cancelled"
)

var transitions = map[AlertStatus][]AlertStatus{
	StatusSent:         {StatusDelivered, StatusAcknowledged, StatusResolved, StatusExpired, StatusCancelled},
	StatusDelivered:    {StatusAcknowledged, StatusResolved, StatusExpired, StatusCancelled},
	StatusAcknowledged: {StatusResolved, StatusExpired, StatusCancelled},
}

func (s AlertStatus) Terminal() bool {
	return s == StatusResolved || s == StatusExpired || s == StatusCancelled
}

func (s AlertStatus) Valid() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusAcknowledged, StatusResolved, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

func CanTransition(from AlertStatus, to AlertStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesFor lists the statuses the table lets move into to.
func SourcesFor(to AlertStatus) []AlertStatus {
	var out []AlertStatus
	for _, from := range NonTerminalStatuses() {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// NonTerminalStatuses lists every status an alert can still leave.
func NonTerminalStatuses() []AlertStatus {
	return []AlertStatus{StatusSent, StatusDelivered, StatusAcknowledged}
}

// AlertAction is the closed set of client driven transitions.
type AlertAction string

const (
	ActionAcknowledge AlertAction = "acknowledge"
	ActionResolve     AlertAction = "resolve"
	ActionCancel      AlertAction = "cancel"
	ActionReport      AlertAction = "report"
)

func ParseAlertAction(raw string) (AlertAction, error) {
	switch a := AlertAction(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionAcknowledge, ActionResolve, ActionCancel, ActionReport:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, raw)
	}
}

// Target is the status an action moves an alert into.
func (a AlertAction) Target() AlertStatus {
	switch a {
	case ActionAcknowledge:
		return StatusAcknowledged
	case ActionResolve:
		return StatusResolved
	default:
		return StatusCancelled
	}
}

// Sources lists the statuses from which the action is allowed. Cancel is
// narrower than the generic table: a sender may only withdraw an alert the
// receiver has not reacted to yet.
func (a AlertAction) Sources() []AlertStatus {
	switch a {
	case ActionCancel:
		return []AlertStatus{StatusSent, StatusDelivered}
	case ActionAcknowledge, ActionResolve, ActionReport:
		return SourcesFor(a.Target())
	default:
		return nil
	}
}

func (a AlertAction) AllowedFrom(status AlertStatus) bool {
	for _, s := range a.Sources() {
		if s == status {
			return true
		}
	}
	return false
}

// ByReceiver reports whether only the receiver may perform the action.
func (a AlertAction) ByReceiver() bool {
	return a != ActionCancel
}

// CheckTimeline verifies that the timestamps of a match its status.
func CheckTimeline(a Alert) error {
	if !a.Status.Valid() {
		return fmt.Errorf("unknown status %q", a.Status)
	}
	if a.ExpiresAt.Before(a.SentAt) {
		return fmt.Errorf("alert %s expires before it was sent", a.AlertID)
	}
	if a.AcknowledgedAt != nil {
		switch a.Status {
		case StatusAcknowledged, StatusResolved, StatusExpired, StatusCancelled:
		default:
			return fmt.Errorf("alert %s has acknowledgedAt with status %s", a.AlertID, a.Status)
		}
		if a.AcknowledgedAt.Before(a.SentAt) {
			return fmt.Errorf("alert %s acknowledged before it was sent", a.AlertID)
		}
	}
	if a.ResolvedAt != nil && a.Status != StatusResolved {
		return fmt.Errorf("alert %s has resolvedAt with status %s", a.AlertID, a.Status)
	}
	if a.Status == StatusResolved && a.ResolvedAt == nil {
		return fmt.Errorf("alert %s is resolved without resolvedAt", a.AlertID)
	}
	if a.Status == StatusExpired && a.ExpiredAt == nil {
		return fmt.Errorf("alert %s is expired without expiredAt", a.AlertID)
	}
	if a.Status == StatusCancelled && a.CancelledAt == nil {
		return fmt.Errorf("alert %s is cancelled without cancelledAt", a.AlertID)
	}
	return nil
}
