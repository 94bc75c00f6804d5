package opsconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/ports"
	"parkalert/internal/usecase/ledger"
)

const maxAuditLines = 8

// SecurityService is the abuse side of the console.
type SecurityService interface {
	ListSecurityEvents(ctx context.Context, filter ports.SecurityEventFilter) ([]parking.SecurityEvent, error)
	Reinstate(ctx context.Context, accountID string, reason string) (parking.Account, error)
}

// ReputationService is the ledger side of the console.
type ReputationService interface {
	Summary(ctx context.Context, accountID string) (ledger.Summary, error)
	VerifyLedger(ctx context.Context, accountID string) (ledger.Audit, error)
}

type Options struct {
	AccountFilter   string
	TypeFilter      string
	Limit           int
	RefreshInterval time.Duration
}

var typeFilters = []parking.SecurityEventType{
	"",
	parking.SecurityRapidAlerts,
	parking.SecurityRapidRegistrations,
	parking.SecuritySuspiciousPattern,
}

type opsModel struct {
	ctx             context.Context
	security        SecurityService
	reputation      ReputationService
	accountFilter   string
	typeFilter      parking.SecurityEventType
	limit           int
	refreshInterval time.Duration

	events        []parking.SecurityEvent
	selectedIndex int
	summary       ledger.Summary
	hasSummary    bool
	status        string
	auditLogs     []string
}

type eventsLoadedMsg struct {
	items []parking.SecurityEvent
	err   error
}

type summaryLoadedMsg struct {
	accountID string
	summary   ledger.Summary
	err       error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action    string
	accountID string
	result    string
	err       error
}

func NewOpsModel(ctx context.Context, security SecurityService, reputation ReputationService, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	limit := options.Limit
	if limit <= 0 {
		limit = 50
	}
	return &opsModel{
		ctx:             ctx,
		security:        security,
		reputation:      reputation,
		accountFilter:   strings.TrimSpace(options.AccountFilter),
		typeFilter:      parking.SecurityEventType(strings.ToLower(strings.TrimSpace(options.TypeFilter))),
		limit:           limit,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *opsModel) Init() tea.Cmd {
	return tea.Batch(m.loadEventsCmd(), m.tickCmd())
}

func (m *opsModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadEventsCmd(), m.tickCmd())
	case eventsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.events = msg.items
		if len(m.events) == 0 {
			m.selectedIndex = 0
			m.hasSummary = false
			m.status = "no security events"
			return m, nil
		}
		if m.selectedIndex >= len(m.events) {
			m.selectedIndex = len(m.events) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d event(s)", len(m.events))
		return m, m.loadSummaryCmd()
	case summaryLoadedMsg:
		selected, ok := m.selectedEvent()
		if !ok || selected.AccountID != msg.accountID {
			return m, nil
		}
		if msg.err != nil {
			m.hasSummary = false
			m.status = "summary failed: " + msg.err.Error()
			return m, nil
		}
		m.summary = msg.summary
		m.hasSummary = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.accountID, "failed", msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
			m.appendAuditLog(msg.action, msg.accountID, msg.result, nil)
		}
		return m, m.loadEventsCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadEventsCmd()
		case "t":
			m.typeFilter = nextTypeFilter(m.typeFilter)
			m.selectedIndex = 0
			m.status = "type filter " + firstNonEmpty(string(m.typeFilter), "all")
			return m, m.loadEventsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSummaryCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.events)-1 {
				m.selectedIndex++
				return m, m.loadSummaryCmd()
			}
			return m, nil
		case "r":
			return m, m.reinstateCmd()
		case "v":
			return m, m.verifyCmd()
		}
	}
	return m, nil
}

func (m *opsModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	alarmStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("parkalert security console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"account=%s type=%s limit=%d refresh=%s",
		firstNonEmpty(m.accountFilter, "all"),
		firstNonEmpty(string(m.typeFilter), "all"),
		m.limit,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Events"))
	builder.WriteString("\n")
	if len(m.events) == 0 {
		builder.WriteString(dimStyle.Render("- no events"))
		builder.WriteString("\n\n")
	} else {
		for index, event := range m.events {
			line := fmt.Sprintf(
				"%s %s [%s] %s action=%s",
				event.CreatedAt.UTC().Format(time.RFC3339),
				event.AccountID,
				event.Severity,
				event.EventType,
				firstNonEmpty(event.ActionTaken, "-"),
			)
			switch {
			case index == m.selectedIndex:
				builder.WriteString(selectedStyle.Render("> " + line))
			case event.Severity == parking.SeverityHigh || event.Severity == parking.SeverityCritical:
				builder.WriteString("  " + alarmStyle.Render(line))
			default:
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Account"))
	builder.WriteString("\n")
	if !m.hasSummary {
		builder.WriteString(dimStyle.Render("- no account selected"))
		builder.WriteString("\n\n")
	} else {
		s := m.summary
		builder.WriteString(fmt.Sprintf("AccountID: %s\n", s.AccountID))
		builder.WriteString(fmt.Sprintf("Status: %s\n", s.Status))
		builder.WriteString(fmt.Sprintf("Score: %d (%s)\n", s.Score, s.Tier.Name))
		builder.WriteString(fmt.Sprintf("Quota: %s used=%d resets=%s\n", quotaLabel(s.DailyQuota), s.UsedToday, s.QuotaResetsAt.UTC().Format(time.RFC3339)))
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  t type filter  r reinstate  v verify ledger  q quit"))
	return builder.String()
}

func (m *opsModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *opsModel) loadEventsCmd() tea.Cmd {
	filter := ports.SecurityEventFilter{
		AccountID: m.accountFilter,
		EventType: m.typeFilter,
		Limit:     m.limit,
	}
	return func() tea.Msg {
		items, err := m.security.ListSecurityEvents(m.ctx, filter)
		return eventsLoadedMsg{items: items, err: err}
	}
}

func (m *opsModel) loadSummaryCmd() tea.Cmd {
	selected, ok := m.selectedEvent()
	if !ok {
		return nil
	}
	accountID := selected.AccountID
	return func() tea.Msg {
		summary, err := m.reputation.Summary(m.ctx, accountID)
		return summaryLoadedMsg{accountID: accountID, summary: summary, err: err}
	}
}

func (m *opsModel) reinstateCmd() tea.Cmd {
	selected, ok := m.selectedEvent()
	if !ok {
		m.status = "no event selected"
		return nil
	}
	if m.hasSummary && m.summary.AccountID == selected.AccountID && m.summary.Status != parking.AccountSuspended {
		m.status = selected.AccountID + " is not suspended"
		return nil
	}
	accountID := selected.AccountID
	m.status = "reinstating " + accountID
	return func() tea.Msg {
		account, err := m.security.Reinstate(m.ctx, accountID, "console reinstate")
		if err != nil {
			return actionDoneMsg{action: "reinstate", accountID: accountID, err: err}
		}
		return actionDoneMsg{action: "reinstate", accountID: accountID, result: string(account.Status)}
	}
}

func (m *opsModel) verifyCmd() tea.Cmd {
	selected, ok := m.selectedEvent()
	if !ok {
		m.status = "no event selected"
		return nil
	}
	accountID := selected.AccountID
	m.status = "verifying ledger of " + accountID
	return func() tea.Msg {
		audit, err := m.reputation.VerifyLedger(m.ctx, accountID)
		if err != nil {
			return actionDoneMsg{action: "verify", accountID: accountID, err: err}
		}
		if !audit.Consistent {
			return actionDoneMsg{
				action:    "verify",
				accountID: accountID,
				err:       fmt.Errorf("score %d, ledger expects %d", audit.Score, audit.Expected),
			}
		}
		return actionDoneMsg{action: "verify", accountID: accountID, result: fmt.Sprintf("consistent over %d event(s)", audit.Events)}
	}
}

func (m *opsModel) selectedEvent() (parking.SecurityEvent, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.events) {
		return parking.SecurityEvent{}, false
	}
	return m.events[m.selectedIndex], true
}

func (m *opsModel) appendAuditLog(action string, accountID string, result string, err error) {
	line := fmt.Sprintf("%s %s account=%s result=%s",
		time.Now().UTC().Format(time.RFC3339), action, firstNonEmpty(accountID, "-"), firstNonEmpty(result, "-"))
	if err != nil {
		line += " err=" + err.Error()
		logging.Warn(m.ctx, "console action failed",
			slog.String("action", action),
			slog.String("account_id", accountID),
			slog.String("err", err.Error()),
		)
	}
	m.auditLogs = append(m.auditLogs, line)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[len(m.auditLogs)-maxAuditLines:]
	}
}

func nextTypeFilter(current parking.SecurityEventType) parking.SecurityEventType {
	for i, candidate := range typeFilters {
		if candidate == current {
			return typeFilters[(i+1)%len(typeFilters)]
		}
	}
	return typeFilters[0]
}

func quotaLabel(quota int) string {
	if quota == parking.UnlimitedQuota {
		return "unlimited"
	}
	return fmt.Sprintf("%d/day", quota)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
