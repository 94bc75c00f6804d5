package abuse

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/ledger"
	"parkalert/internal/usecase/usecasetest"
)

func setupAbuse(t *testing.T) (*Service, *usecasetest.Env) {
	t.Helper()
	env := usecasetest.NewEnv(t)
	ledgerService := ledger.NewService(env.Store, env.UoW, env.Clock, nil)
	return NewService(env.Store, env.UoW, ledgerService, nil, env.Clock, nil), env
}

func seedSends(t *testing.T, env *usecasetest.Env, sender string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		now := env.Clock.Now()
		if err := env.Store.CreateAlert(context.Background(), parking.Alert{
			AlertID:              uuid.NewString(),
			SenderAccountID:      sender,
			ReceiverAccountID:    "receiver",
			TargetIdentifierHash: usecasetest.Hash("ab"),
			Urgency:              parking.UrgencyNormal,
			Status:               parking.StatusSent,
			SentAt:               now,
			ExpiresAt:            now.Add(30 * time.Minute),
		}); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
		env.Clock.Advance(time.Second)
	}
}

func TestCheckSenderVelocityClearUnderLimit(t *testing.T) {
	svc, env := setupAbuse(t)
	sender := env.Account(t, parking.InitialReputation)
	seedSends(t, env, sender, 4)

	verdict, err := svc.CheckSenderVelocity(context.Background(), sender, 10*time.Minute, 5)
	if err != nil {
		t.Fatalf("CheckSenderVelocity() error = %v", err)
	}
	if verdict != parking.VerdictClear {
		t.Fatalf("verdict = %s, want clear for the 5th send", verdict)
	}
	if got := env.Score(t, sender); got != parking.InitialReputation {
		t.Fatalf("score = %d", got)
	}
}

func TestCheckSenderVelocityFlagsSixthSend(t *testing.T) {
	svc, env := setupAbuse(t)
	ctx := context.Background()
	sender := env.Account(t, parking.InitialReputation)
	seedSends(t, env, sender, 5)

	verdict, err := svc.CheckSenderVelocity(ctx, sender, 10*time.Minute, 5)
	if err != nil {
		t.Fatalf("CheckSenderVelocity() error = %v", err)
	}
	if verdict != parking.VerdictFlagged {
		t.Fatalf("verdict = %s, want flagged", verdict)
	}

	events, err := svc.ListSecurityEvents(ctx, ports.SecurityEventFilter{AccountID: sender})
	if err != nil {
		t.Fatalf("ListSecurityEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].EventType != parking.SecurityRapidAlerts || events[0].Severity != parking.SeverityHigh {
		t.Fatalf("security events = %+v", events)
	}
	penalties, err := env.Store.CountReputationEvents(ctx, sender, parking.EventPenalty, "")
	if err != nil || penalties != 1 {
		t.Fatalf("penalty events = %d, %v", penalties, err)
	}
	if got := env.Score(t, sender); got != 950 {
		t.Fatalf("score = %d, want 950", got)
	}
}

func TestCheckSenderVelocityPenaltyClampsAtZero(t *testing.T) {
	svc, env := setupAbuse(t)
	ctx := context.Background()
	sender := env.Account(t, 20)
	seedSends(t, env, sender, 5)

	verdict, err := svc.CheckSenderVelocity(ctx, sender, 10*time.Minute, 5)
	if err != nil {
		t.Fatalf("CheckSenderVelocity() error = %v", err)
	}
	if verdict != parking.VerdictFlagged {
		t.Fatalf("verdict = %s, want flagged", verdict)
	}
	if got := env.Score(t, sender); got != 0 {
		t.Fatalf("score = %d, want clamp to 0", got)
	}

	events, err := env.Store.ListReputationEvents(ctx, sender, 10)
	if err != nil {
		t.Fatalf("ListReputationEvents() error = %v", err)
	}
	var penalty *parking.ReputationEvent
	for i := range events {
		if events[i].EventType == parking.EventPenalty {
			penalty = &events[i]
		}
	}
	if penalty == nil {
		t.Fatalf("no penalty event in %+v", events)
	}
	if penalty.Delta != -50 || penalty.AppliedDelta != -20 {
		t.Fatalf("penalty delta = %d applied = %d, want -50 and -20", penalty.Delta, penalty.AppliedDelta)
	}
}

func TestCheckSenderVelocityWindowSlides(t *testing.T) {
	svc, env := setupAbuse(t)
	sender := env.Account(t, parking.InitialReputation)
	seedSends(t, env, sender, 5)
	env.Clock.Advance(10 * time.Minute)

	verdict, err := svc.CheckSenderVelocity(context.Background(), sender, 10*time.Minute, 5)
	if err != nil {
		t.Fatalf("CheckSenderVelocity() error = %v", err)
	}
	if verdict != parking.VerdictClear {
		t.Fatalf("verdict = %s, want clear once the window has passed", verdict)
	}
}

func TestRepeatedFlagsSuspendAndReinstate(t *testing.T) {
	svc, env := setupAbuse(t)
	ctx := context.Background()
	sender := env.Account(t, parking.InitialReputation)
	seedSends(t, env, sender, 5)

	for i := 0; i < 3; i++ {
		if _, err := svc.CheckSenderVelocity(ctx, sender, 10*time.Minute, 5); err != nil {
			t.Fatalf("CheckSenderVelocity() error = %v", err)
		}
	}

	account, err := env.Store.GetAccount(ctx, sender)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if !account.Suspended() {
		t.Fatalf("account status = %s, want suspended", account.Status)
	}
	critical, err := env.Store.CountSecurityEvents(ctx, ports.SecurityEventFilter{AccountID: sender, EventType: parking.SecuritySuspiciousPattern})
	if err != nil || critical != 1 {
		t.Fatalf("suspicious_pattern events = %d, %v", critical, err)
	}

	env.Clock.Advance(time.Hour)
	account, err = svc.Reinstate(ctx, sender, "appeal accepted")
	if err != nil {
		t.Fatalf("Reinstate() error = %v", err)
	}
	if account.Suspended() {
		t.Fatalf("Reinstate() left account suspended")
	}
	events, err := svc.ListSecurityEvents(ctx, ports.SecurityEventFilter{AccountID: sender, Limit: 1})
	if err != nil || len(events) != 1 || events[0].ActionTaken != parking.ActionAccountReinstated {
		t.Fatalf("latest event = %+v, %v", events, err)
	}
}

func TestCheckRegistrationVelocityDetectsOnly(t *testing.T) {
	svc, env := setupAbuse(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := env.Store.AppendRegistrationAttempt(ctx, ports.RegistrationAttempt{
			OriginProxy:    "origin-1",
			IdentifierHash: usecasetest.Hash("c" + string(rune('0'+i))),
			AccountID:      "acc",
			Outcome:        ports.RegistrationCreated,
			CreatedAt:      env.Clock.Now(),
		}); err != nil {
			t.Fatalf("AppendRegistrationAttempt() error = %v", err)
		}
		verdict, err := svc.CheckRegistrationVelocity(ctx, "origin-1", "acc", time.Hour, 3)
		if err != nil {
			t.Fatalf("CheckRegistrationVelocity() error = %v", err)
		}
		want := parking.VerdictClear
		if i == 3 {
			want = parking.VerdictFlagged
		}
		if verdict != want {
			t.Fatalf("attempt %d verdict = %s, want %s", i+1, verdict, want)
		}
		env.Clock.Advance(time.Minute)
	}

	count, err := env.Store.CountSecurityEvents(ctx, ports.SecurityEventFilter{EventType: parking.SecurityRapidRegistrations})
	if err != nil || count != 1 {
		t.Fatalf("rapid_registrations events = %d, %v", count, err)
	}
}
