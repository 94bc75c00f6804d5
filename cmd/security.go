package cmd

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"parkalert/internal/bootstrap"
	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/ports"
)

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Review abuse detection output",
}

var securityEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List security events, newest first",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		accountID, _ := cmd.Flags().GetString("account")
		eventType, _ := cmd.Flags().GetString("type")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := ports.SecurityEventFilter{
			AccountID: strings.TrimSpace(accountID),
			Limit:     limit,
		}
		if eventType = strings.ToLower(strings.TrimSpace(eventType)); eventType != "" {
			switch t := parking.SecurityEventType(eventType); t {
			case parking.SecurityRapidAlerts, parking.SecurityRapidRegistrations, parking.SecuritySuspiciousPattern:
				filter.EventType = t
			default:
				return fmt.Errorf("unknown security event type %q", eventType)
			}
		}
		if since > 0 {
			filter.Since = time.Now().UTC().Add(-since)
		}

		events, err := app.Abuse.ListSecurityEvents(ctx, filter)
		if err != nil {
			logging.Error(ctx, "list security events failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list security events")
		}
		if len(events) == 0 {
			return writeEmpty(cmd.OutOrStdout(), "security events")
		}

		rows := [][]string{{"created_at", "account", "type", "severity", "action", "details"}}
		for _, event := range events {
			rows = append(rows, []string{
				formatTime(event.CreatedAt),
				event.AccountID,
				string(event.EventType),
				string(event.Severity),
				orDash(event.ActionTaken),
				formatDetails(event.Details),
			})
		}
		return writeRows(cmd.OutOrStdout(), rows)
	}),
}

func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(details))
	for _, key := range slices.Sorted(maps.Keys(details)) {
		parts = append(parts, fmt.Sprintf("%s=%v", key, details[key]))
	}
	return strings.Join(parts, " ")
}

func init() {
	rootCmd.AddCommand(securityCmd)
	securityCmd.AddCommand(securityEventsCmd)

	securityEventsCmd.Flags().String("account", "", "Only events for this account")
	securityEventsCmd.Flags().String("type", "", "rapid_alerts, rapid_registrations or suspicious_pattern")
	securityEventsCmd.Flags().Duration("since", 0, "Only events newer than this, e.g. 24h")
	securityEventsCmd.Flags().Int("limit", 50, "Maximum events to list")
}
