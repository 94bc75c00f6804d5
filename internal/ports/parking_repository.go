package ports

import (
	"context"
	"time"

	"parkalert/internal/domain/parking"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, account parking.Account) (parking.Account, error)
	GetAccount(ctx context.Context, accountID string) (parking.Account, error)
	// TouchAccount stamps last_seen_at. Inside a transaction it also takes the
	// row write lock, serialising concurrent writers of one account.
	TouchAccount(ctx context.Context, accountID string, at time.Time) error
	// SetReputationScore is a compare-and-swap on the current score.
	SetReputationScore(ctx context.Context, accountID string, expected int, next int, at time.Time) (bool, error)
	SetAccountStatus(ctx context.Context, accountID string, status parking.AccountStatus, at time.Time) error
	DeleteAccount(ctx context.Context, accountID string) error
}

type IdentifierRepository interface {
	GetIdentifier(ctx context.Context, identifierHash string) (parking.Identifier, error)
	// CreateIdentifier inserts unless the hash exists; created is false on conflict.
	CreateIdentifier(ctx context.Context, identifier parking.Identifier) (created bool, err error)
	// TransferIdentifier moves ownership only while the stored proof still equals expectedProof.
	TransferIdentifier(ctx context.Context, identifierHash string, expectedProof string, newOwner string, newProof string, at time.Time) (bool, error)
	DeleteIdentifier(ctx context.Context, identifierHash string, ownerAccountID string) (bool, error)
	DeleteIdentifiersByOwner(ctx context.Context, ownerAccountID string) (int64, error)
	CountIdentifiersByOwner(ctx context.Context, ownerAccountID string) (int64, error)
	ListIdentifiersByOwner(ctx context.Context, ownerAccountID string) ([]parking.Identifier, error)
}

type RegistrationOutcome string

const (
	RegistrationCreated       RegistrationOutcome = "created"
	RegistrationUnchanged     RegistrationOutcome = "unchanged"
	RegistrationTransferred   RegistrationOutcome = "transferred"
	RegistrationProofMismatch RegistrationOutcome = "proof_mismatch"
	RegistrationLimitReached  RegistrationOutcome = "limit_reached"
)

type RegistrationAttempt struct {
	OriginProxy    string
	IdentifierHash string
	AccountID      string
	Outcome        RegistrationOutcome
	CreatedAt      time.Time
}

type RegistrationRepository interface {
	AppendRegistrationAttempt(ctx context.Context, attempt RegistrationAttempt) error
	CountRegistrationsSince(ctx context.Context, originProxy string, since time.Time) (int64, error)
	// CountProofMismatchesSince counts failed ownership claims on one identifier.
	CountProofMismatchesSince(ctx context.Context, identifierHash string, since time.Time) (int64, error)
}

// AlertStamps carries the timestamp columns written by a transition.
type AlertStamps struct {
	DeliveredAt    *time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	CancelledAt    *time.Time
	ExpiredAt      *time.Time
	Response       *string
}

type AlertRepository interface {
	CreateAlert(ctx context.Context, alert parking.Alert) error
	GetAlert(ctx context.Context, alertID string) (parking.Alert, error)
	// TransitionAlert moves the alert to `to` only while its status is one of
	// from. It reports false when another writer got there first.
	TransitionAlert(ctx context.Context, alertID string, from []parking.AlertStatus, to parking.AlertStatus, stamps AlertStamps) (bool, error)
	MarkPushSent(ctx context.Context, alertID string, at time.Time) error
	CountAlertsBySenderSince(ctx context.Context, senderAccountID string, since time.Time) (int64, error)
	ListDueForExpiry(ctx context.Context, now time.Time, limit int) ([]parking.Alert, error)
	ListAlertIDsByIdentifier(ctx context.Context, identifierHash string, statuses []parking.AlertStatus) ([]string, error)
	ListAlertIDsBySender(ctx context.Context, senderAccountID string, statuses []parking.AlertStatus) ([]string, error)
}

type LedgerRepository interface {
	AppendReputationEvent(ctx context.Context, event parking.ReputationEvent) error
	ListReputationEvents(ctx context.Context, accountID string, limit int) ([]parking.ReputationEvent, error)
	CountReputationEvents(ctx context.Context, accountID string, eventType parking.EventType, relatedAlertID string) (int64, error)
	SumReputationDeltas(ctx context.Context, accountID string) (delta int64, applied int64, err error)
	DeleteReputationEvents(ctx context.Context, accountID string) error
}

type SecurityEventFilter struct {
	AccountID string
	EventType parking.SecurityEventType
	Since     time.Time
	Limit     int
}

type SecurityRepository interface {
	AppendSecurityEvent(ctx context.Context, event parking.SecurityEvent) error
	ListSecurityEvents(ctx context.Context, filter SecurityEventFilter) ([]parking.SecurityEvent, error)
	CountSecurityEvents(ctx context.Context, filter SecurityEventFilter) (int64, error)
}

// ParkingRepository is the storage collaborator of every usecase.
type ParkingRepository interface {
	AccountRepository
	IdentifierRepository
	RegistrationRepository
	AlertRepository
	LedgerRepository
	SecurityRepository
}
