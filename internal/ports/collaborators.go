package ports

import (
	"context"
	"time"

	"parkalert/internal/domain/parking"
)

// PushMessage is what the router hands to the push collaborator once an
// alert is committed.
type PushMessage struct {
	AccountID string
	AlertID   string
	Title     string
	Body      string
	Urgency   parking.Urgency
	SoundHint string
}

type DeliveryResult struct {
	// Accepted means the provider took the message; Delivered means it
	// confirmed the device received it.
	Accepted   bool
	Delivered  bool
	ProviderID string
}

type PushSender interface {
	Send(ctx context.Context, msg PushMessage) (DeliveryResult, error)
}

// Clock is injected so time based rules can be tested.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// PolicySource returns the policy in force right now. Implementations may
// reload it from disk.
type PolicySource interface {
	Current() parking.Policy
}

type StaticPolicy parking.Policy

func (p StaticPolicy) Current() parking.Policy { return parking.Policy(p) }

// Metrics receives counters from usecases. NopMetrics discards them.
type Metrics interface {
	AlertSent(urgency parking.Urgency, flagged bool)
	AlertTransitioned(to parking.AlertStatus)
	ReputationRecorded(eventType parking.EventType, applied int)
	SecurityEventRecorded(eventType parking.SecurityEventType, severity parking.Severity)
	PushAttempted(outcome string)
}

type NopMetrics struct{}

func (NopMetrics) AlertSent(parking.Urgency, bool) {}
func (NopMetrics) AlertTransitioned(parking.AlertStatus) {}
func (NopMetrics) ReputationRecorded(parking.EventType, int) {}
func (NopMetrics) SecurityEventRecorded(parking.SecurityEventType, parking.Severity) {}
func (NopMetrics) PushAttempted(string) {}
