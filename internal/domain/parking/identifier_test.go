package parking

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

var sampleHash = strings.Repeat("ab", 32)

func TestNormalizeIdentifierHash(t *testing.T) {
	got, err := NormalizeIdentifierHash("  " + strings.ToUpper(sampleHash) + " ")
	if err != nil {
		t.Fatalf("NormalizeIdentifierHash() error = %v", err)
	}
	if got != sampleHash {
		t.Fatalf("NormalizeIdentifierHash() = %q", got)
	}

	_, err = NormalizeIdentifierHash("AB-123-CD")
	if !errors.Is(err, ErrInvalidIdentifierHash) {
		t.Fatalf("NormalizeIdentifierHash() error = %v, want ErrInvalidIdentifierHash", err)
	}
}

func TestNormalizeDisplayCode(t *testing.T) {
	for _, ok := range []string{"PARK-AB12-CD34", "park-ab12-cd34", "PLATE-ABABABAB", ""} {
		if _, err := NormalizeDisplayCode(ok); err != nil {
			t.Fatalf("NormalizeDisplayCode(%q) error = %v", ok, err)
		}
	}
	for _, bad := range []string{"PARK-AB1-CD34", "B-XY-123", "PLATE-XYZ"} {
		if _, err := NormalizeDisplayCode(bad); !errors.Is(err, ErrInvalidDisplayCode) {
			t.Fatalf("NormalizeDisplayCode(%q) error = %v, want ErrInvalidDisplayCode", bad, err)
		}
	}
	if got := PlateDisplayCode(sampleHash); got != "PLATE-ABABABAB" {
		t.Fatalf("PlateDisplayCode() = %q", got)
	}
}

func TestProofMatches(t *testing.T) {
	if !ProofMatches("", "anything") {
		t.Fatalf("empty stored proof must accept first claim")
	}
	if ProofMatches(sampleHash, "") {
		t.Fatalf("missing proof must not match")
	}
	if ProofMatches(sampleHash, strings.Repeat("cd", 32)) {
		t.Fatalf("different proof must not match")
	}
	if !ProofMatches(sampleHash, sampleHash) {
		t.Fatalf("equal proof must match")
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("register: %w", ErrAlreadyRegistered), KindConflict},
		{ErrSelfAlert, KindClient},
		{&QuotaError{Tier: TierLearning, Quota: 5}, KindPolicy},
		{fmt.Errorf("%w: deadline", ErrStorageUnavailable), KindTransient},
		{errors.New("boom"), KindUnknown},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestDefaultPolicyIsValid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("DefaultPolicy().Validate() error = %v", err)
	}

	p := DefaultPolicy()
	p.MaxIdentifiersPerOwner = 0
	p.AlertTTL = 0
	if err := p.Validate(); err == nil {
		t.Fatalf("Validate() expected error")
	}
}
