package errs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestWrapPreservesChain(t *testing.T) {
	root := errors.New("root")
	err := Wrapf(Wrap(root, "inner"), "outer %d", 1)
	if !errors.Is(err, root) {
		t.Fatalf("errors.Is() = false for wrapped root")
	}
	chain := ErrorChainStrings(err)
	if len(chain) != 3 || chain[0] != "outer 1: inner: root" {
		t.Fatalf("ErrorChainStrings() = %#v", chain)
	}
	if Wrap(nil, "x") != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
}

func TestTemporary(t *testing.T) {
	err := Wrap(Temporary(context.DeadlineExceeded), "write alert")
	if !IsTemporary(err) {
		t.Fatalf("IsTemporary() = false")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Temporary() broke the chain")
	}
	if IsTemporary(errors.New("plain")) {
		t.Fatalf("IsTemporary() = true for plain error")
	}

	value := Loggable(err).LogValue()
	found := false
	for _, attr := range value.Group() {
		if attr.Key == "temporary" && attr.Value.Kind() == slog.KindBool && attr.Value.Bool() {
			found = true
		}
	}
	if !found {
		t.Fatalf("Loggable() missing temporary attr: %v", value)
	}
}
