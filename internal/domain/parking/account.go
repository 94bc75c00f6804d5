package parking

import "time"

// InitialReputation is the seed every account starts from. The ledger invariant
// is score == InitialReputation + sum(applied deltas).
const InitialReputation = 1000

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
)

type Account struct {
	AccountID       string
	ReputationScore int
	Status          AccountStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastSeenAt      *time.Time
}

func (a Account) Suspended() bool {
	return a.Status == AccountSuspended
}
