package parking

import (
	"testing"
	"time"
)

func TestTierFor(t *testing.T) {
	cases := []struct {
		score int
		want  TierName
		quota int
	}{
		{2500, TierChampion, UnlimitedQuota},
		{2000, TierChampion, UnlimitedQuota},
		{1999, TierConsiderate, 20},
		{1500, TierConsiderate, 20},
		{1000, TierGoodNeighbor, 10},
		{999, TierLearning, 5},
		{500, TierLearning, 5},
		{499, TierNeedsImprovement, 2},
		{0, TierNeedsImprovement, 2},
	}
	for _, tc := range cases {
		got := TierFor(tc.score)
		if got.Name != tc.want || got.DailyQuota != tc.quota {
			t.Fatalf("TierFor(%d) = %s/%d, want %s/%d", tc.score, got.Name, got.DailyQuota, tc.want, tc.quota)
		}
	}
}

func TestTierRemaining(t *testing.T) {
	if got := TierFor(1000).Remaining(3); got != 7 {
		t.Fatalf("Remaining() = %d, want 7", got)
	}
	if got := TierFor(1000).Remaining(12); got != 0 {
		t.Fatalf("Remaining() = %d, want 0", got)
	}
	if got := TierFor(3000).Remaining(1000); got != UnlimitedQuota {
		t.Fatalf("Remaining() = %d, want unlimited", got)
	}
}

func TestApplyDeltaClampsAtZero(t *testing.T) {
	next, applied := ApplyDelta(30, -50)
	if next != 0 || applied != -30 {
		t.Fatalf("ApplyDelta(30, -50) = %d, %d", next, applied)
	}
	next, applied = ApplyDelta(1000, 15)
	if next != 1015 || applied != 15 {
		t.Fatalf("ApplyDelta(1000, 15) = %d, %d", next, applied)
	}
}

func TestResolutionRewardsQuickResponse(t *testing.T) {
	p := DefaultPolicy()
	sentAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ackAt := sentAt.Add(2 * time.Minute)
	resolvedAt := sentAt.Add(8 * time.Minute)

	rewards := ResolutionRewards(p, Alert{
		SenderAccountID:   "B",
		ReceiverAccountID: "A",
		SentAt:            sentAt,
		AcknowledgedAt:    &ackAt,
		ResolvedAt:        &resolvedAt,
	})
	if len(rewards) != 2 {
		t.Fatalf("rewards len = %d", len(rewards))
	}
	if rewards[0].AccountID != "B" || rewards[0].EventType != EventAlertResolved || rewards[0].Delta != 10 {
		t.Fatalf("sender reward = %+v", rewards[0])
	}
	if rewards[1].AccountID != "A" || rewards[1].EventType != EventQuickResponse || rewards[1].Delta != 15 {
		t.Fatalf("receiver reward = %+v", rewards[1])
	}
}

func TestResolutionRewardsSlowResponse(t *testing.T) {
	p := DefaultPolicy()
	sentAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	resolvedAt := sentAt.Add(10 * time.Minute)

	rewards := ResolutionRewards(p, Alert{
		SenderAccountID:   "B",
		ReceiverAccountID: "A",
		SentAt:            sentAt,
		ResolvedAt:        &resolvedAt,
	})
	if rewards[1].EventType != EventAlertAcknowledged || rewards[1].Delta != 5 {
		t.Fatalf("receiver reward = %+v", rewards[1])
	}
}

func TestResolutionRewardsBoundaryIsQuick(t *testing.T) {
	p := DefaultPolicy()
	sentAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	resolvedAt := sentAt.Add(5 * time.Minute)

	rewards := ResolutionRewards(p, Alert{SenderAccountID: "B", ReceiverAccountID: "A", SentAt: sentAt, ResolvedAt: &resolvedAt})
	if rewards[1].Delta != 15 {
		t.Fatalf("receiver reward at exactly 5m = %d, want 15", rewards[1].Delta)
	}
}

func TestQuotaResetAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	if got := QuotaResetAt(now); !got.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("QuotaResetAt() = %s", got)
	}
}
