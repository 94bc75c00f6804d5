package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"parkalert/internal/domain/parking"
	"parkalert/internal/infrastructure/persistence/sqlstore/sqlstoretest"
	"parkalert/internal/infrastructure/persistence/sqlstore/uow"
	"parkalert/internal/ports"
)

var (
	hashA  = strings.Repeat("a1", 32)
	proofA = strings.Repeat("f0", 32)
	baseAt = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
)

func setupStore(t *testing.T) (*Store, *uow.UnitOfWork) {
	t.Helper()
	db := sqlstoretest.Open(t)
	return NewStore(db), uow.NewUnitOfWork(db, 5*time.Second)
}

func seedAccount(t *testing.T, store *Store, id string) {
	t.Helper()
	_, err := store.CreateAccount(context.Background(), parking.Account{
		AccountID:       id,
		ReputationScore: parking.InitialReputation,
		Status:          parking.AccountActive,
		CreatedAt:       baseAt,
		UpdatedAt:       baseAt,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
}

func TestAccountScoreCompareAndSwap(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1")

	ok, err := store.SetReputationScore(ctx, "acc-1", 1000, 1015, baseAt)
	if err != nil {
		t.Fatalf("SetReputationScore() error = %v", err)
	}
	if !ok {
		t.Fatalf("SetReputationScore() expected swap")
	}

	ok, err = store.SetReputationScore(ctx, "acc-1", 1000, 990, baseAt)
	if err != nil {
		t.Fatalf("SetReputationScore() error = %v", err)
	}
	if ok {
		t.Fatalf("SetReputationScore() swapped on stale score")
	}

	account, err := store.GetAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if account.ReputationScore != 1015 {
		t.Fatalf("score = %d, want 1015", account.ReputationScore)
	}

	if err := store.TouchAccount(ctx, "missing", baseAt); !errors.Is(err, parking.ErrAccountNotFound) {
		t.Fatalf("TouchAccount() error = %v, want ErrAccountNotFound", err)
	}
}

func TestIdentifierInsertOrNothingAndTransfer(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	identifier := parking.Identifier{
		IdentifierHash:     hashA,
		OwnerAccountID:     "owner-1",
		VerificationStatus: parking.VerificationVerified,
		OwnershipProofHash: proofA,
		RegisteredAt:       baseAt,
		UpdatedAt:          baseAt,
	}
	created, err := store.CreateIdentifier(ctx, identifier)
	if err != nil || !created {
		t.Fatalf("CreateIdentifier() = %v, %v", created, err)
	}

	identifier.OwnerAccountID = "owner-2"
	created, err = store.CreateIdentifier(ctx, identifier)
	if err != nil {
		t.Fatalf("CreateIdentifier(dup) error = %v", err)
	}
	if created {
		t.Fatalf("CreateIdentifier(dup) created a second row")
	}

	moved, err := store.TransferIdentifier(ctx, hashA, "wrong", "owner-2", proofA, baseAt)
	if err != nil || moved {
		t.Fatalf("TransferIdentifier(wrong proof) = %v, %v", moved, err)
	}
	moved, err = store.TransferIdentifier(ctx, hashA, proofA, "owner-2", proofA, baseAt.Add(time.Minute))
	if err != nil || !moved {
		t.Fatalf("TransferIdentifier() = %v, %v", moved, err)
	}

	got, err := store.GetIdentifier(ctx, hashA)
	if err != nil {
		t.Fatalf("GetIdentifier() error = %v", err)
	}
	if got.OwnerAccountID != "owner-2" || !got.RegisteredAt.Equal(baseAt) {
		t.Fatalf("identifier = %+v", got)
	}

	count, err := store.CountIdentifiersByOwner(ctx, "owner-1")
	if err != nil || count != 0 {
		t.Fatalf("CountIdentifiersByOwner(owner-1) = %d, %v", count, err)
	}

	deleted, err := store.DeleteIdentifier(ctx, hashA, "owner-1")
	if err != nil || deleted {
		t.Fatalf("DeleteIdentifier(non-owner) = %v, %v", deleted, err)
	}
}

func TestAlertConditionalTransition(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	alert := parking.Alert{
		AlertID:              "alert-1",
		SenderAccountID:      "s",
		ReceiverAccountID:    "r",
		TargetIdentifierHash: hashA,
		Urgency:              parking.UrgencyNormal,
		Status:               parking.StatusSent,
		SentAt:               baseAt,
		ExpiresAt:            baseAt.Add(30 * time.Minute),
	}
	if err := store.CreateAlert(ctx, alert); err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	ackAt := baseAt.Add(time.Minute)
	ok, err := store.TransitionAlert(ctx, "alert-1", parking.ActionAcknowledge.Sources(), parking.StatusAcknowledged, ports.AlertStamps{AcknowledgedAt: &ackAt})
	if err != nil || !ok {
		t.Fatalf("TransitionAlert(ack) = %v, %v", ok, err)
	}
	ok, err = store.TransitionAlert(ctx, "alert-1", parking.ActionAcknowledge.Sources(), parking.StatusAcknowledged, ports.AlertStamps{AcknowledgedAt: &ackAt})
	if err != nil || ok {
		t.Fatalf("TransitionAlert(ack again) = %v, %v", ok, err)
	}

	got, err := store.GetAlert(ctx, "alert-1")
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if got.Status != parking.StatusAcknowledged || got.AcknowledgedAt == nil || !got.AcknowledgedAt.Equal(ackAt) {
		t.Fatalf("alert = %+v", got)
	}

	due, err := store.ListDueForExpiry(ctx, baseAt.Add(31*time.Minute), 10)
	if err != nil {
		t.Fatalf("ListDueForExpiry() error = %v", err)
	}
	if len(due) != 1 || due[0].AlertID != "alert-1" {
		t.Fatalf("ListDueForExpiry() = %+v", due)
	}
	due, err = store.ListDueForExpiry(ctx, baseAt.Add(30*time.Minute), 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("ListDueForExpiry(at expiry) = %d, %v", len(due), err)
	}

	count, err := store.CountAlertsBySenderSince(ctx, "s", baseAt.Add(-time.Minute))
	if err != nil || count != 1 {
		t.Fatalf("CountAlertsBySenderSince() = %d, %v", count, err)
	}
}

func TestListAlertIDsBySender(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for i, status := range []parking.AlertStatus{parking.StatusSent, parking.StatusAcknowledged, parking.StatusResolved} {
		at := baseAt.Add(time.Duration(i) * time.Minute)
		if err := store.CreateAlert(ctx, parking.Alert{
			AlertID:              "alert-" + string(status),
			SenderAccountID:      "s",
			ReceiverAccountID:    "r",
			TargetIdentifierHash: hashA,
			Urgency:              parking.UrgencyNormal,
			Status:               status,
			SentAt:               at,
			ExpiresAt:            at.Add(30 * time.Minute),
		}); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
	}

	ids, err := store.ListAlertIDsBySender(ctx, "s", parking.NonTerminalStatuses())
	if err != nil {
		t.Fatalf("ListAlertIDsBySender() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "alert-sent" || ids[1] != "alert-acknowledged" {
		t.Fatalf("ListAlertIDsBySender() = %v", ids)
	}
	ids, err = store.ListAlertIDsBySender(ctx, "r", parking.NonTerminalStatuses())
	if err != nil || len(ids) != 0 {
		t.Fatalf("ListAlertIDsBySender(receiver) = %v, %v", ids, err)
	}
}

func TestLedgerSumsAndSecurityEvents(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	events := []parking.ReputationEvent{
		{EventID: "e1", AccountID: "a", EventType: parking.EventQuickResponse, Delta: 15, AppliedDelta: 15, CreatedAt: baseAt},
		{EventID: "e2", AccountID: "a", EventType: parking.EventPenalty, Delta: -50, AppliedDelta: -50, CreatedAt: baseAt.Add(time.Second)},
	}
	for _, event := range events {
		if err := store.AppendReputationEvent(ctx, event); err != nil {
			t.Fatalf("AppendReputationEvent() error = %v", err)
		}
	}
	delta, applied, err := store.SumReputationDeltas(ctx, "a")
	if err != nil {
		t.Fatalf("SumReputationDeltas() error = %v", err)
	}
	if delta != -35 || applied != -35 {
		t.Fatalf("SumReputationDeltas() = %d, %d", delta, applied)
	}
	listed, err := store.ListReputationEvents(ctx, "a", 1)
	if err != nil || len(listed) != 1 || listed[0].EventID != "e2" {
		t.Fatalf("ListReputationEvents() = %+v, %v", listed, err)
	}

	if err := store.AppendSecurityEvent(ctx, parking.SecurityEvent{
		EventID:   "s1",
		AccountID: "a",
		EventType: parking.SecurityRapidAlerts,
		Severity:  parking.SeverityHigh,
		Details:   map[string]any{"count": 6},
		CreatedAt: baseAt,
	}); err != nil {
		t.Fatalf("AppendSecurityEvent() error = %v", err)
	}
	found, err := store.ListSecurityEvents(ctx, ports.SecurityEventFilter{AccountID: "a", EventType: parking.SecurityRapidAlerts})
	if err != nil || len(found) != 1 {
		t.Fatalf("ListSecurityEvents() = %+v, %v", found, err)
	}
	if found[0].Details["count"] != float64(6) {
		t.Fatalf("details = %#v", found[0].Details)
	}
	count, err := store.CountSecurityEvents(ctx, ports.SecurityEventFilter{AccountID: "a", Since: baseAt})
	if err != nil || count != 0 {
		t.Fatalf("CountSecurityEvents(since) = %d, %v", count, err)
	}
}

func TestUnitOfWorkRollsBackAndJoins(t *testing.T) {
	store, unit := setupStore(t)
	ctx := context.Background()
	seedAccount(t, store, "acc-1")

	boom := errors.New("boom")
	err := unit.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := store.SetReputationScore(txCtx, "acc-1", 1000, 1100, baseAt); err != nil {
			return err
		}
		return unit.WithTx(txCtx, func(inner context.Context) error {
			if ports.TxFromContext(inner) != ports.TxFromContext(txCtx) {
				t.Fatalf("nested WithTx opened a new transaction")
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v, want boom", err)
	}

	account, err := store.GetAccount(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if account.ReputationScore != 1000 {
		t.Fatalf("score = %d, want rollback to 1000", account.ReputationScore)
	}
}

func TestUnavailable(t *testing.T) {
	if !Unavailable(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatalf("Unavailable(locked) = false")
	}
	err := storageError(context.DeadlineExceeded, "insert alert")
	if !errors.Is(err, parking.ErrStorageUnavailable) {
		t.Fatalf("storageError() = %v, want ErrStorageUnavailable", err)
	}
	if parking.KindOf(err) != parking.KindTransient {
		t.Fatalf("KindOf() = %s", parking.KindOf(err))
	}
}
