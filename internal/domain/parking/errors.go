package parking

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidIdentifierHash = errors.New("identifier hash must be 64 lowercase hex characters")
	ErrInvalidProofHash      = errors.New("ownership proof hash must be 64 lowercase hex characters")
	ErrInvalidDisplayCode    = errors.New("display code must look like PARK-XXXX-XXXX or PLATE-XXXXXXXX")
	ErrInvalidUrgency        = errors.New("invalid urgency level")
	ErrInvalidAction         = errors.New("invalid alert action")
	ErrInvalidEventType      = errors.New("invalid reputation event type")
	ErrMessageTooLong        = errors.New("message is too long")
	ErrAccountIDRequired     = errors.New("account id is required")
	ErrAlertIDRequired       = errors.New("alert id is required")

	ErrAccountNotFound    = errors.New("account not found")
	ErrIdentifierNotFound = errors.New("identifier not found")
	ErrAlertNotFound      = errors.New("alert not found")

	ErrSelfAlert      = errors.New("cannot send an alert to your own identifier")
	ErrNotOwner       = errors.New("identifier is not yours")
	ErrNotReceiver    = errors.New("not your alert to answer")
	ErrNotSender      = errors.New("only the sender can cancel this alert")
	ErrNotParticipant = errors.New("not a participant of this alert")
	ErrInvalidState   = errors.New("alert cannot make this transition from its current status")
	ErrNotExpired     = errors.New("alert has not reached its expiry time")

	ErrAlreadyRegistered  = errors.New("identifier is already registered")
	ErrTooManyIdentifiers = errors.New("identifier limit reached for this account")
	ErrProofMismatch      = errors.New("ownership proof does not match")
	ErrTransitionConflict = errors.New("alert was changed concurrently")
	ErrReputationConflict = errors.New("reputation was changed concurrently")

	ErrQuotaExceeded    = errors.New("daily alert quota exceeded")
	ErrAccountSuspended = errors.New("account is suspended")

	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Kind groups errors by how callers are expected to react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindClient
	KindConflict
	KindPolicy
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindConflict:
		return "conflict"
	case KindPolicy:
		return "policy"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

var (
	clientErrors = []error{
		ErrInvalidIdentifierHash, ErrInvalidProofHash, ErrInvalidDisplayCode, ErrInvalidUrgency,
		ErrInvalidAction, ErrInvalidEventType, ErrMessageTooLong, ErrAccountIDRequired, ErrAlertIDRequired,
		ErrAccountNotFound, ErrIdentifierNotFound, ErrAlertNotFound,
		ErrSelfAlert, ErrNotOwner, ErrNotReceiver, ErrNotSender, ErrNotParticipant,
		ErrInvalidState, ErrNotExpired,
	}
	conflictErrors = []error{
		ErrAlreadyRegistered, ErrTooManyIdentifiers, ErrProofMismatch, ErrTransitionConflict, ErrReputationConflict,
	}
	policyErrors = []error{
		ErrQuotaExceeded, ErrAccountSuspended,
	}
)

// KindOf classifies err. Errors outside the parking taxonomy are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return KindTransient
	}
	for _, target := range policyErrors {
		if errors.Is(err, target) {
			return KindPolicy
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return KindConflict
		}
	}
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return KindClient
		}
	}
	return KindUnknown
}

// QuotaError explains a refused send in terms of the caller's own tier.
type QuotaError struct {
	Tier    TierName
	Quota   int
	Used    int
	ResetAt time.Time
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: tier %s allows %d alerts per day, resets at %s",
		ErrQuotaExceeded.Error(), e.Tier, e.Quota, e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
