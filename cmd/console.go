package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"parkalert/internal/bootstrap"
	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/errs"
	"parkalert/internal/usecase/opsconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the operator security console",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		account, _ := cmd.Flags().GetString("account")
		eventType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := opsconsole.NewOpsModel(ctx, app.Abuse, app.Ledger, opsconsole.Options{
			AccountFilter:   account,
			TypeFilter:      eventType,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run security console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("account", "", "Only events for this account")
	consoleCmd.Flags().String("type", "", "Initial type filter (rapid_alerts|rapid_registrations|suspicious_pattern)")
	consoleCmd.Flags().Int("limit", 50, "Events per refresh")
	consoleCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}
