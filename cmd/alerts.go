package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"parkalert/internal/bootstrap"
	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Operate on alerts",
}

var alertsExpireDueCmd = &cobra.Command{
	Use:   "expire-due",
	Short: "Expire alerts whose deadline has passed",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		limit, _ := cmd.Flags().GetInt("limit")

		moved, err := app.Router.ExpireDue(ctx, limit)
		if err != nil {
			logging.Error(ctx, "expire due alerts failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "expire due alerts")
		}
		logging.Info(ctx, "expire-due finished", slog.Int("expired", moved))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "expired %d alert(s)\n", moved)
		return err
	}),
}

var alertsShowCmd = &cobra.Command{
	Use:   "show <alert-id>",
	Short: "Show one alert as seen by a participant",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		as, _ := cmd.Flags().GetString("as")

		alert, err := app.Router.Get(ctx, strings.TrimSpace(cmd.Flags().Arg(0)), as)
		if err != nil {
			return errs.Wrap(err, "get alert")
		}
		rows := [][]string{
			{"field", "value"},
			{"alert_id", alert.AlertID},
			{"status", string(alert.Status)},
			{"urgency", string(alert.Urgency)},
			{"identifier", alert.TargetIdentifierHash},
			{"sent_at", formatTime(alert.SentAt)},
			{"expires_at", formatTime(alert.ExpiresAt)},
			{"flagged", fmt.Sprintf("%t", alert.Flagged)},
		}
		if alert.Response != "" {
			rows = append(rows, []string{"response", alert.Response})
		}
		return writeRows(cmd.OutOrStdout(), rows)
	}),
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsExpireDueCmd, alertsShowCmd)

	alertsExpireDueCmd.Flags().Int("limit", 100, "Maximum alerts to expire in this run")
	alertsShowCmd.Flags().String("as", "", "Account id of the sender or receiver")
	_ = alertsShowCmd.MarkFlagRequired("as")
}
