package parking

import "time"

type SecurityEventType string

const (
	SecurityRapidAlerts        SecurityEventType = "rapid_alerts"
	SecurityRapidRegistrations SecurityEventType = "rapid_registrations"
	SecuritySuspiciousPattern  SecurityEventType = "suspicious_pattern"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	ActionReputationPenalty = "reputation_penalty"
	ActionAccountSuspended  = "account_suspended"
	ActionAccountReinstated = "account_reinstated"
	ActionAlertCancelled    = "alert_cancelled"
)

type SecurityEvent struct {
	EventID     string
	AccountID   string
	EventType   SecurityEventType
	Severity    Severity
	Details     map[string]any
	ActionTaken string
	CreatedAt   time.Time
}

// Verdict is the outcome of a velocity gate.
type Verdict string

const (
	VerdictClear   Verdict = "clear"
	VerdictFlagged Verdict = "flagged"
)

// Exceeds reports whether count actions inside a window break a limit of max.
func Exceeds(count int64, max int) bool {
	return max >= 0 && count > int64(max)
}
