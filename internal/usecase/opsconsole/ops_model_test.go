package opsconsole

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/ledger"
)

type fakeSecurity struct {
	events     []parking.SecurityEvent
	lastFilter ports.SecurityEventFilter
	reinstated []string
	err        error
}

func (f *fakeSecurity) ListSecurityEvents(_ context.Context, filter ports.SecurityEventFilter) ([]parking.SecurityEvent, error) {
	f.lastFilter = filter
	return f.events, f.err
}

func (f *fakeSecurity) Reinstate(_ context.Context, accountID string, _ string) (parking.Account, error) {
	f.reinstated = append(f.reinstated, accountID)
	return parking.Account{AccountID: accountID, Status: parking.AccountActive}, nil
}

type fakeReputation struct {
	summaries map[string]ledger.Summary
	audit     ledger.Audit
}

func (f *fakeReputation) Summary(_ context.Context, accountID string) (ledger.Summary, error) {
	summary, ok := f.summaries[accountID]
	if !ok {
		return ledger.Summary{}, parking.ErrAccountNotFound
	}
	return summary, nil
}

func (f *fakeReputation) VerifyLedger(_ context.Context, accountID string) (ledger.Audit, error) {
	audit := f.audit
	audit.AccountID = accountID
	return audit, nil
}

func newTestModel(security *fakeSecurity, reputation *fakeReputation) *opsModel {
	return NewOpsModel(context.Background(), security, reputation, Options{Limit: 10}).(*opsModel)
}

// drive feeds msg to the model and runs the returned command chain until it
// yields nothing the model reacts to.
func drive(t *testing.T, m *opsModel, msg tea.Msg) {
	t.Helper()
	for i := 0; msg != nil && i < 10; i++ {
		_, cmd := m.Update(msg)
		if cmd == nil {
			return
		}
		msg = cmd()
	}
}

func sampleEvents() []parking.SecurityEvent {
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []parking.SecurityEvent{
		{EventID: "e2", AccountID: "acct-b", EventType: parking.SecuritySuspiciousPattern, Severity: parking.SeverityHigh, ActionTaken: parking.ActionAccountSuspended, CreatedAt: at.Add(time.Minute)},
		{EventID: "e1", AccountID: "acct-a", EventType: parking.SecurityRapidAlerts, Severity: parking.SeverityMedium, ActionTaken: parking.ActionReputationPenalty, CreatedAt: at},
	}
}

func TestEventsLoadedSelectsAndLoadsSummary(t *testing.T) {
	security := &fakeSecurity{events: sampleEvents()}
	reputation := &fakeReputation{summaries: map[string]ledger.Summary{
		"acct-b": {AccountID: "acct-b", Status: parking.AccountSuspended, Score: 850, Tier: parking.TierFor(850)},
		"acct-a": {AccountID: "acct-a", Status: parking.AccountActive, Score: 950, Tier: parking.TierFor(950)},
	}}
	m := newTestModel(security, reputation)

	drive(t, m, eventsLoadedMsg{items: security.events})
	if !m.hasSummary || m.summary.AccountID != "acct-b" {
		t.Fatalf("summary = %+v, hasSummary = %v", m.summary, m.hasSummary)
	}

	drive(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedIndex != 1 || m.summary.AccountID != "acct-a" {
		t.Fatalf("after down: index = %d summary = %q", m.selectedIndex, m.summary.AccountID)
	}

	view := m.View()
	for _, want := range []string{"acct-a", "suspicious_pattern", "Score: 950"} {
		if !strings.Contains(view, want) {
			t.Fatalf("View() missing %q", want)
		}
	}
}

func TestStaleSummaryIgnored(t *testing.T) {
	m := newTestModel(&fakeSecurity{}, &fakeReputation{})
	m.events = sampleEvents()

	m.Update(summaryLoadedMsg{accountID: "acct-a", summary: ledger.Summary{AccountID: "acct-a"}})
	if m.hasSummary {
		t.Fatalf("summary for an unselected account must be ignored")
	}
}

func TestReinstateSuspendedAccount(t *testing.T) {
	security := &fakeSecurity{events: sampleEvents()}
	reputation := &fakeReputation{summaries: map[string]ledger.Summary{
		"acct-b": {AccountID: "acct-b", Status: parking.AccountSuspended},
	}}
	m := newTestModel(security, reputation)
	drive(t, m, eventsLoadedMsg{items: security.events})

	drive(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if len(security.reinstated) != 1 || security.reinstated[0] != "acct-b" {
		t.Fatalf("reinstated = %v", security.reinstated)
	}
	if len(m.auditLogs) != 1 || !strings.Contains(m.auditLogs[0], "reinstate account=acct-b result=active") {
		t.Fatalf("auditLogs = %v", m.auditLogs)
	}
}

func TestReinstateSkipsActiveAccount(t *testing.T) {
	security := &fakeSecurity{events: sampleEvents()[1:]}
	reputation := &fakeReputation{summaries: map[string]ledger.Summary{
		"acct-a": {AccountID: "acct-a", Status: parking.AccountActive},
	}}
	m := newTestModel(security, reputation)
	drive(t, m, eventsLoadedMsg{items: security.events})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd != nil {
		t.Fatalf("reinstate of an active account must not run")
	}
	if !strings.Contains(m.status, "not suspended") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestVerifyReportsInconsistency(t *testing.T) {
	security := &fakeSecurity{events: sampleEvents()}
	reputation := &fakeReputation{
		summaries: map[string]ledger.Summary{"acct-b": {AccountID: "acct-b"}},
		audit:     ledger.Audit{Score: 900, Expected: 850, Consistent: false},
	}
	m := newTestModel(security, reputation)
	drive(t, m, eventsLoadedMsg{items: security.events})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	if cmd == nil {
		t.Fatalf("verify returned no command")
	}
	m.Update(cmd())
	if !strings.Contains(m.status, "verify failed") || !strings.Contains(m.status, "ledger expects 850") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestTypeFilterCyclesAndReachesQuery(t *testing.T) {
	if got := nextTypeFilter(""); got != parking.SecurityRapidAlerts {
		t.Fatalf("nextTypeFilter(all) = %q", got)
	}
	if got := nextTypeFilter(parking.SecuritySuspiciousPattern); got != "" {
		t.Fatalf("nextTypeFilter(last) = %q, want all", got)
	}

	security := &fakeSecurity{}
	m := newTestModel(security, &fakeReputation{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	cmd()
	if security.lastFilter.EventType != parking.SecurityRapidAlerts || security.lastFilter.Limit != 10 {
		t.Fatalf("filter = %+v", security.lastFilter)
	}
}

func TestRefreshFailureKeepsEvents(t *testing.T) {
	m := newTestModel(&fakeSecurity{}, &fakeReputation{})
	m.events = sampleEvents()

	m.Update(eventsLoadedMsg{err: errors.New("database is locked")})
	if len(m.events) != 2 || !strings.HasPrefix(m.status, "refresh failed") {
		t.Fatalf("events = %d status = %q", len(m.events), m.status)
	}
}
