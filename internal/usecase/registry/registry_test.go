package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/abuse"
	"parkalert/internal/usecase/ledger"
	"parkalert/internal/usecase/usecasetest"
)

var (
	plateHash = usecasetest.Hash("9f")
	proofOne  = usecasetest.Hash("11")
	proofTwo  = usecasetest.Hash("22")
)

func setupRegistry(t *testing.T) (*Service, *usecasetest.Env, *usecasetest.Cache) {
	t.Helper()
	env := usecasetest.NewEnv(t)
	ledgerService := ledger.NewService(env.Store, env.UoW, env.Clock, nil)
	abuseService := abuse.NewService(env.Store, env.UoW, ledgerService, nil, env.Clock, nil)
	cache := usecasetest.NewCache()
	return NewService(env.Store, env.UoW, abuseService, cache, nil, env.Clock, nil), env, cache
}

func TestRegisterAndResolveOwner(t *testing.T) {
	svc, env, cache := setupRegistry(t)
	ctx := context.Background()
	owner := env.Account(t, parking.InitialReputation)

	result, err := svc.Register(ctx, RegisterInput{
		IdentifierHash: plateHash,
		OwnerAccountID: owner,
		ProofHash:      proofOne,
		DisplayCode:    "park-ab12-cd34",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !result.Created || result.Identifier.VerificationStatus != parking.VerificationVerified {
		t.Fatalf("Register() = %+v", result)
	}
	if result.Identifier.DisplayCode != "PARK-AB12-CD34" {
		t.Fatalf("DisplayCode = %q", result.Identifier.DisplayCode)
	}

	got, err := svc.ResolveOwner(ctx, plateHash)
	if err != nil {
		t.Fatalf("ResolveOwner() error = %v", err)
	}
	if got != owner {
		t.Fatalf("ResolveOwner() = %q, want %q", got, owner)
	}
	if !cache.Has(ports.OwnerCacheKey(plateHash)) {
		t.Fatalf("ResolveOwner() did not populate the cache")
	}

	_, err = svc.ResolveOwner(ctx, usecasetest.Hash("77"))
	if !errors.Is(err, parking.ErrIdentifierNotFound) {
		t.Fatalf("ResolveOwner(unknown) error = %v, want ErrIdentifierNotFound", err)
	}
}

func TestRegisterDefaultsToPlateDisplayCode(t *testing.T) {
	svc, env, _ := setupRegistry(t)
	owner := env.Account(t, parking.InitialReputation)

	result, err := svc.Register(context.Background(), RegisterInput{
		IdentifierHash: plateHash,
		OwnerAccountID: owner,
		ProofHash:      proofOne,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if result.Identifier.DisplayCode != "PLATE-9F9F9F9F" {
		t.Fatalf("DisplayCode = %q, want PLATE-9F9F9F9F", result.Identifier.DisplayCode)
	}
}

func TestRegisterOwnIdentifierIsIdempotent(t *testing.T) {
	svc, env, _ := setupRegistry(t)
	ctx := context.Background()
	owner := env.Account(t, parking.InitialReputation)

	input := RegisterInput{IdentifierHash: plateHash, OwnerAccountID: owner, ProofHash: proofOne}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	result, err := svc.Register(ctx, input)
	if err != nil {
		t.Fatalf("Register(again) error = %v", err)
	}
	if result.Created || result.Transferred {
		t.Fatalf("Register(again) = %+v, want unchanged", result)
	}
	count, err := env.Store.CountIdentifiersByOwner(ctx, owner)
	if err != nil || count != 1 {
		t.Fatalf("CountIdentifiersByOwner() = %d, %v", count, err)
	}
}

func TestDuplicateRegistrationIsRejectedWithoutMutation(t *testing.T) {
	svc, env, _ := setupRegistry(t)
	ctx := context.Background()
	first := env.Account(t, parking.InitialReputation)
	second := env.Account(t, parking.InitialReputation)

	if _, err := svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: first, ProofHash: proofOne}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	before, err := env.Store.GetIdentifier(ctx, plateHash)
	if err != nil {
		t.Fatalf("GetIdentifier() error = %v", err)
	}

	env.Clock.Advance(time.Minute)
	_, err = svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: second, ProofHash: proofTwo})
	if !errors.Is(err, parking.ErrAlreadyRegistered) {
		t.Fatalf("Register(second) error = %v, want ErrAlreadyRegistered", err)
	}

	after, err := env.Store.GetIdentifier(ctx, plateHash)
	if err != nil {
		t.Fatalf("GetIdentifier() error = %v", err)
	}
	if after != before {
		t.Fatalf("identifier changed: before %+v after %+v", before, after)
	}
}

func TestRegisterWithMatchingProofTransfers(t *testing.T) {
	svc, env, cache := setupRegistry(t)
	ctx := context.Background()
	first := env.Account(t, parking.InitialReputation)
	second := env.Account(t, parking.InitialReputation)

	if _, err := svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: first, ProofHash: proofOne}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.ResolveOwner(ctx, plateHash); err != nil {
		t.Fatalf("ResolveOwner() error = %v", err)
	}

	result, err := svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: second, ProofHash: proofOne})
	if err != nil {
		t.Fatalf("Register(transfer) error = %v", err)
	}
	if !result.Transferred || result.Identifier.OwnerAccountID != second {
		t.Fatalf("Register(transfer) = %+v", result)
	}
	if cache.Has(ports.OwnerCacheKey(plateHash)) {
		t.Fatalf("transfer left a stale owner in the cache")
	}
	owner, err := svc.ResolveOwner(ctx, plateHash)
	if err != nil || owner != second {
		t.Fatalf("ResolveOwner() = %q, %v", owner, err)
	}
}

func TestRegisterEnforcesIdentifierLimit(t *testing.T) {
	svc, env, _ := setupRegistry(t)
	ctx := context.Background()
	owner := env.Account(t, parking.InitialReputation)

	for _, seed := range []string{"a1", "a2", "a3"} {
		if _, err := svc.Register(ctx, RegisterInput{IdentifierHash: usecasetest.Hash(seed), OwnerAccountID: owner, ProofHash: proofOne}); err != nil {
			t.Fatalf("Register(%s) error = %v", seed, err)
		}
	}
	_, err := svc.Register(ctx, RegisterInput{IdentifierHash: usecasetest.Hash("a4"), OwnerAccountID: owner, ProofHash: proofOne})
	if !errors.Is(err, parking.ErrTooManyIdentifiers) {
		t.Fatalf("Register(4th) error = %v, want ErrTooManyIdentifiers", err)
	}
}

func TestConcurrentRegistrationKeepsOneOwner(t *testing.T) {
	svc, env, _ := setupRegistry(t)
	ctx := context.Background()

	const claimants = 8
	accounts := make([]string, claimants)
	for i := range accounts {
		accounts[i] = env.Account(t, parking.InitialReputation)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			proof := usecasetest.Hash("b" + string(rune('0'+i)))
			result, err := svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: accounts[i], ProofHash: proof})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && result.Created:
				created++
			case errors.Is(err, parking.ErrAlreadyRegistered):
				conflicts++
			default:
				t.Errorf("Register() = %+v, %v", result, err)
			}
		}(i)
	}
	wg.Wait()

	if created != 1 || conflicts != claimants-1 {
		t.Fatalf("created = %d, conflicts = %d", created, conflicts)
	}
}

func TestTransferOwnershipRequiresProof(t *testing.T) {
	svc, env, _ := setupRegistry(t)
	ctx := context.Background()
	first := env.Account(t, parking.InitialReputation)
	second := env.Account(t, parking.InitialReputation)

	if _, err := svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: first, ProofHash: proofOne}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.TransferOwnership(ctx, TransferInput{IdentifierHash: plateHash, NewOwnerAccountID: second, ProofHash: proofTwo})
	if !errors.Is(err, parking.ErrProofMismatch) {
		t.Fatalf("TransferOwnership(wrong proof) error = %v, want ErrProofMismatch", err)
	}

	identifier, err := svc.TransferOwnership(ctx, TransferInput{IdentifierHash: plateHash, NewOwnerAccountID: second, ProofHash: proofOne})
	if err != nil {
		t.Fatalf("TransferOwnership() error = %v", err)
	}
	if identifier.OwnerAccountID != second {
		t.Fatalf("owner = %q, want %q", identifier.OwnerAccountID, second)
	}
}

func TestRepeatedProofMismatchWritesSecurityEvent(t *testing.T) {
	svc, env, _ := setupRegistry(t)
	ctx := context.Background()
	owner := env.Account(t, parking.InitialReputation)
	intruder := env.Account(t, parking.InitialReputation)

	if _, err := svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: owner, ProofHash: proofOne}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		env.Clock.Advance(time.Minute)
		if _, err := svc.TransferOwnership(ctx, TransferInput{IdentifierHash: plateHash, NewOwnerAccountID: intruder, ProofHash: proofTwo}); !errors.Is(err, parking.ErrProofMismatch) {
			t.Fatalf("TransferOwnership() error = %v", err)
		}
	}

	count, err := env.Store.CountSecurityEvents(ctx, ports.SecurityEventFilter{AccountID: intruder, EventType: parking.SecuritySuspiciousPattern})
	if err != nil {
		t.Fatalf("CountSecurityEvents() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("suspicious_pattern events = %d, want 1", count)
	}
}

func TestUnregisterCancelsUndeliveredAlerts(t *testing.T) {
	svc, env, cache := setupRegistry(t)
	ctx := context.Background()
	owner := env.Account(t, parking.InitialReputation)
	other := env.Account(t, parking.InitialReputation)

	if _, err := svc.Register(ctx, RegisterInput{IdentifierHash: plateHash, OwnerAccountID: owner, ProofHash: proofOne}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	now := env.Clock.Now()
	deliveredAt := now
	for _, alert := range []parking.Alert{
		{AlertID: "pending", Status: parking.StatusSent},
		{AlertID: "delivered", Status: parking.StatusDelivered, DeliveredAt: &deliveredAt},
	} {
		alert.SenderAccountID = other
		alert.ReceiverAccountID = owner
		alert.TargetIdentifierHash = plateHash
		alert.Urgency = parking.UrgencyNormal
		alert.SentAt = now
		alert.ExpiresAt = now.Add(30 * time.Minute)
		if err := env.Store.CreateAlert(ctx, alert); err != nil {
			t.Fatalf("CreateAlert() error = %v", err)
		}
	}
	if _, err := svc.ResolveOwner(ctx, plateHash); err != nil {
		t.Fatalf("ResolveOwner() error = %v", err)
	}

	if _, err := svc.Unregister(ctx, plateHash, other); !errors.Is(err, parking.ErrNotOwner) {
		t.Fatalf("Unregister(non-owner) error = %v, want ErrNotOwner", err)
	}

	cancelled, err := svc.Unregister(ctx, plateHash, owner)
	if err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("cancelled = %d, want 1", cancelled)
	}
	pending, err := env.Store.GetAlert(ctx, "pending")
	if err != nil || pending.Status != parking.StatusCancelled || pending.CancelledAt == nil {
		t.Fatalf("pending alert = %+v, %v", pending, err)
	}
	delivered, err := env.Store.GetAlert(ctx, "delivered")
	if err != nil || delivered.Status != parking.StatusDelivered {
		t.Fatalf("delivered alert = %+v, %v", delivered, err)
	}
	if cache.Has(ports.OwnerCacheKey(plateHash)) {
		t.Fatalf("Unregister() left the owner cached")
	}
	if _, err := svc.ResolveOwner(ctx, plateHash); !errors.Is(err, parking.ErrIdentifierNotFound) {
		t.Fatalf("ResolveOwner() after unregister error = %v", err)
	}
}
