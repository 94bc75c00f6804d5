package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestWithAttrsOverridesByKey(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "info", "json"))
	ctx = WithAttrs(ctx, slog.String("component", "router"), slog.String("alert_id", "a1"))
	ctx = WithAttrs(ctx, slog.String("component", "ledger"))

	Info(ctx, "recorded")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["component"] != "ledger" {
		t.Fatalf("component = %v", line["component"])
	}
	if line["alert_id"] != "a1" {
		t.Fatalf("alert_id = %v", line["alert_id"])
	}
}

func TestDebugRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "info", "text"))
	Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %s", buf.String())
	}

	ctx = WithLogger(context.Background(), New(&buf, "debug", "text"))
	Debug(ctx, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("debug line missing: %s", buf.String())
	}
}

func TestWithSpanWithoutSpanKeepsContext(t *testing.T) {
	ctx := WithSpan(context.Background())
	if len(Attrs(ctx)) != 0 {
		t.Fatalf("Attrs() = %v, want none", Attrs(ctx))
	}
}
