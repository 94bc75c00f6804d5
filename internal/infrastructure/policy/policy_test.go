package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parkalert/internal/domain/parking"
)

func TestParseOverridesDefaults(t *testing.T) {
	p, err := Parse([]byte(`
version = 1

[alerts]
ttl = "45m"

[velocity]
sender_max = 7
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.AlertTTL.Duration() != 45*time.Minute {
		t.Fatalf("AlertTTL = %s", p.AlertTTL)
	}
	if p.SenderVelocityMax != 7 {
		t.Fatalf("SenderVelocityMax = %d", p.SenderVelocityMax)
	}
	if p.QuickResponseReward != parking.DefaultPolicy().QuickResponseReward {
		t.Fatalf("QuickResponseReward = %d, want default", p.QuickResponseReward)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "[alerts]\ncolour = \"red\"\n",
		"bad duration":  "[alerts]\nttl = \"soon\"\n",
		"zero limit":    "[registry]\nmax_identifiers_per_owner = 0\n",
		"wrong version": "version = 9\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: Parse() expected error", name)
		}
	}
}

func TestEncodeRoundTripsDefaults(t *testing.T) {
	raw, err := Encode(parking.DefaultPolicy())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	p, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(Encode()) error = %v\n%s", err, raw)
	}
	if p != parking.DefaultPolicy() {
		t.Fatalf("Parse(Encode()) = %+v", p)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.toml")
	if err := os.WriteFile(path, []byte("[velocity]\nsender_max = 5\n"), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	initial, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	store := NewStore(initial)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, store) }()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := os.WriteFile(path, []byte("[velocity]\nsender_max = 9\n"), 0o644); err != nil {
			t.Fatalf("rewrite policy: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		if store.Current().SenderVelocityMax == 9 {
			return
		}
	}
	t.Fatalf("SenderVelocityMax = %d after rewrite, want 9", store.Current().SenderVelocityMax)
}
