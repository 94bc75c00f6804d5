package parking

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

func ParseUrgency(raw string) (Urgency, error) {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(raw))); u {
	case UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent:
		return u, nil
	case "":
		return UrgencyNormal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidUrgency, raw)
	}
}

// SoundHint is the notification sound the client should play.
func (u Urgency) SoundHint() string {
	switch u {
	case UrgencyLow:
		return "soft"
	case UrgencyHigh:
		return "alert"
	case UrgencyUrgent:
		return "alarm"
	default:
		return "default"
	}
}

type Alert struct {
	AlertID              string
	SenderAccountID      string
	ReceiverAccountID    string
	TargetIdentifierHash string
	Urgency              Urgency
	Message              string
	Response             string
	Status               AlertStatus
	Flagged              bool
	SentAt               time.Time
	DeliveredAt          *time.Time
	AcknowledgedAt       *time.Time
	ResolvedAt           *time.Time
	CancelledAt          *time.Time
	ExpiredAt            *time.Time
	ExpiresAt            time.Time
	PushSent             bool
	PushSentAt           *time.Time
}

func (a Alert) IsParticipant(accountID string) bool {
	return accountID != "" && (accountID == a.SenderAccountID || accountID == a.ReceiverAccountID)
}

// ResponseTime is measured from send to the first receiver reaction.
func (a Alert) ResponseTime() (time.Duration, bool) {
	switch {
	case a.AcknowledgedAt != nil:
		return a.AcknowledgedAt.Sub(a.SentAt), true
	case a.ResolvedAt != nil:
		return a.ResolvedAt.Sub(a.SentAt), true
	default:
		return 0, false
	}
}

// PushTitle and PushBody render the notification for the receiver. The sender
// stays anonymous.
func (a Alert) PushTitle() string {
	switch a.Urgency {
	case UrgencyUrgent:
		return "Urgent: your car needs to move"
	case UrgencyHigh:
		return "Please check your car soon"
	case UrgencyLow:
		return "A note about your parking"
	default:
		return "Someone needs you to move your car"
	}
}

func (a Alert) PushBody() string {
	if strings.TrimSpace(a.Message) != "" {
		return a.Message
	}
	return "Open the app to respond."
}

// NormalizeMessage trims msg and enforces the rune limit.
func NormalizeMessage(msg string, maxRunes int) (string, error) {
	trimmed := strings.TrimSpace(msg)
	if maxRunes > 0 && utf8.RuneCountInString(trimmed) > maxRunes {
		return "", fmt.Errorf("%w: limit is %d characters", ErrMessageTooLong, maxRunes)
	}
	return trimmed, nil
}
