package parking

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventAlertSent         EventType = "alert_sent"
	EventQuickResponse     EventType = "quick_response"
	EventAlertAcknowledged EventType = "alert_acknowledged"
	EventAlertResolved     EventType = "alert_resolved"
	EventSpamReport        EventType = "spam_report"
	EventPenalty           EventType = "penalty"
)

func ParseEventType(raw string) (EventType, error) {
	switch e := EventType(raw); e {
	case EventAlertSent, EventQuickResponse, EventAlertAcknowledged, EventAlertResolved, EventSpamReport, EventPenalty:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEventType, raw)
	}
}

// ReputationEvent is an immutable ledger line. Delta is what the policy asked
// for, AppliedDelta is what actually moved the score after the zero floor.
type ReputationEvent struct {
	EventID        string
	AccountID      string
	EventType      EventType
	Delta          int
	AppliedDelta   int
	RelatedAlertID string
	CreatedAt      time.Time
}

// ApplyDelta returns the new score and the applied delta for a requested change.
func ApplyDelta(score int, delta int) (next int, applied int) {
	next = score + delta
	if next < 0 {
		next = 0
	}
	return next, next - score
}

type TierName string

const (
	TierChampion         TierName = "champion"
	TierConsiderate      TierName = "considerate"
	TierGoodNeighbor     TierName = "good_neighbor"
	TierLearning         TierName = "learning"
	TierNeedsImprovement TierName = "needs_improvement"
)

// UnlimitedQuota marks a tier without a daily send limit.
const UnlimitedQuota = -1

type Tier struct {
	Name       TierName
	MinScore   int
	DailyQuota int
}

func (t Tier) Unlimited() bool {
	return t.DailyQuota == UnlimitedQuota
}

// Remaining returns the sends left after used, or UnlimitedQuota.
func (t Tier) Remaining(used int) int {
	if t.Unlimited() {
		return UnlimitedQuota
	}
	if used >= t.DailyQuota {
		return 0
	}
	return t.DailyQuota - used
}

var tiers = []Tier{
	{Name: TierChampion, MinScore: 2000, DailyQuota: UnlimitedQuota},
	{Name: TierConsiderate, MinScore: 1500, DailyQuota: 20},
	{Name: TierGoodNeighbor, MinScore: 1000, DailyQuota: 10},
	{Name: TierLearning, MinScore: 500, DailyQuota: 5},
	{Name: TierNeedsImprovement, MinScore: 0, DailyQuota: 2},
}

// Tiers lists the tiers from best to worst.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func TierFor(score int) Tier {
	for _, tier := range tiers {
		if score >= tier.MinScore {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// QuotaResetAt is the next UTC midnight after now.
func QuotaResetAt(now time.Time) time.Time {
	return QuotaDayStart(now).Add(24 * time.Hour)
}

func QuotaDayStart(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Reward is one ledger entry the router must write.
type Reward struct {
	AccountID string
	EventType EventType
	Delta     int
}

// ResolutionRewards computes the payouts for an alert that has just been
// resolved. It is the only place reputation is earned from alerts.
func ResolutionRewards(p Policy, a Alert) []Reward {
	rewards := make([]Reward, 0, 2)
	if p.SenderResolvedReward != 0 {
		rewards = append(rewards, Reward{
			AccountID: a.SenderAccountID,
			EventType: EventAlertResolved,
			Delta:     p.SenderResolvedReward,
		})
	}

	elapsed, ok := a.ResponseTime()
	if ok && elapsed <= p.QuickResponseWindow.Duration() {
		rewards = append(rewards, Reward{
			AccountID: a.ReceiverAccountID,
			EventType: EventQuickResponse,
			Delta:     p.QuickResponseReward,
		})
	} else {
		rewards = append(rewards, Reward{
			AccountID: a.ReceiverAccountID,
			EventType: EventAlertAcknowledged,
			Delta:     p.SlowResponseReward,
		})
	}
	return rewards
}
