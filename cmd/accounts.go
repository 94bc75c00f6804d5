package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"parkalert/internal/bootstrap"
	"parkalert/internal/bootstrap/logging"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/interface/rest"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect and manage accounts",
}

var accountsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account and optionally issue a bearer token",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		account, err := app.Accounts.Create(ctx)
		if err != nil {
			logging.Error(ctx, "create account failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create account")
		}

		rows := [][]string{
			{"field", "value"},
			{"account_id", account.AccountID},
			{"score", strconv.Itoa(account.ReputationScore)},
			{"status", string(account.Status)},
		}
		if withToken, _ := cmd.Flags().GetBool("token"); withToken {
			issuer, err := rest.NewTokenIssuer(app.Config.HTTP.JWTSecret, app.Config.HTTP.TokenTTL)
			if err != nil {
				return errs.Wrap(err, "build token issuer")
			}
			token, expiresAt, err := issuer.Issue(account.AccountID)
			if err != nil {
				return errs.Wrap(err, "issue token")
			}
			rows = append(rows, []string{"token", token}, []string{"token_expires_at", formatTime(expiresAt)})
		}
		return writeRows(cmd.OutOrStdout(), rows)
	}),
}

var accountsReputationCmd = &cobra.Command{
	Use:   "reputation <account-id>",
	Short: "Show score, tier, quota and recent ledger entries",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		accountID := strings.TrimSpace(cmd.Flags().Arg(0))
		limit, _ := cmd.Flags().GetInt("limit")

		summary, err := app.Ledger.Summary(ctx, accountID)
		if err != nil {
			return errs.Wrap(err, "load reputation summary")
		}
		history, err := app.Ledger.History(ctx, accountID, limit)
		if err != nil {
			return errs.Wrap(err, "load reputation history")
		}

		out := cmd.OutOrStdout()
		status := okStyle.Render(string(summary.Status))
		if summary.Status == parking.AccountSuspended {
			status = warnStyle.Render(string(summary.Status))
		}
		if err := writeHeading(out, fmt.Sprintf("%s  %d  %s  %s", summary.AccountID, summary.Score, summary.Tier.Name, status)); err != nil {
			return err
		}
		if err := writeRows(out, [][]string{
			{"daily_quota", "used_today", "remaining_today", "quota_resets_at"},
			{formatQuota(summary.DailyQuota), strconv.Itoa(summary.UsedToday), formatQuota(summary.RemainingToday), formatTime(summary.QuotaResetsAt)},
		}); err != nil {
			return err
		}

		if err := writeHeading(out, "ledger"); err != nil {
			return err
		}
		if len(history) == 0 {
			return writeEmpty(out, "ledger entries")
		}
		rows := [][]string{{"created_at", "event", "delta", "applied", "alert"}}
		for _, event := range history {
			rows = append(rows, []string{
				formatTime(event.CreatedAt),
				string(event.EventType),
				strconv.Itoa(event.Delta),
				strconv.Itoa(event.AppliedDelta),
				orDash(event.RelatedAlertID),
			})
		}
		return writeRows(out, rows)
	}),
}

var accountsReinstateCmd = &cobra.Command{
	Use:   "reinstate <account-id>",
	Short: "Lift a suspension",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		reason, _ := cmd.Flags().GetString("reason")

		account, err := app.Abuse.Reinstate(ctx, cmd.Flags().Arg(0), reason)
		if err != nil {
			logging.Error(ctx, "reinstate account failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "reinstate account")
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", account.AccountID, okStyle.Render(string(account.Status)))
		return err
	}),
}

var accountsVerifyLedgerCmd = &cobra.Command{
	Use:   "verify-ledger <account-id>",
	Short: "Check that the stored score matches the ledger",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		audit, err := app.Ledger.VerifyLedger(ctx, cmd.Flags().Arg(0))
		if err != nil {
			return errs.Wrap(err, "verify ledger")
		}
		verdict := okStyle.Render("consistent")
		if !audit.Consistent {
			verdict = warnStyle.Render("inconsistent")
		}
		if err := writeHeading(cmd.OutOrStdout(), audit.AccountID+"  "+verdict); err != nil {
			return err
		}
		if err := writeRows(cmd.OutOrStdout(), [][]string{
			{"score", "expected", "events", "requested_sum", "applied_sum", "clamped_points"},
			{
				strconv.Itoa(audit.Score),
				strconv.Itoa(audit.Expected),
				strconv.FormatInt(audit.Events, 10),
				strconv.FormatInt(audit.RequestedSum, 10),
				strconv.FormatInt(audit.AppliedSum, 10),
				strconv.FormatInt(audit.ClampedPoints, 10),
			},
		}); err != nil {
			return err
		}
		if !audit.Consistent {
			return fmt.Errorf("ledger for %s is inconsistent: score %d, expected %d", audit.AccountID, audit.Score, audit.Expected)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsCreateCmd, accountsReputationCmd, accountsReinstateCmd, accountsVerifyLedgerCmd)

	accountsCreateCmd.Flags().Bool("token", false, "Also issue a bearer token for the new account")
	accountsReputationCmd.Flags().Int("limit", 20, "Ledger entries to show")
	accountsReinstateCmd.Flags().String("reason", "", "Reason recorded with the reinstatement")
}
