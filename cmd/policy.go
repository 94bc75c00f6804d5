package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"parkalert/internal/bootstrap"
	"parkalert/internal/domain/parking"
	"parkalert/internal/errs"
	"parkalert/internal/infrastructure/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Inspect the reputation and abuse policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the policy in force and the tier table",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App) error {
		current := app.Policy.Current()
		out := cmd.OutOrStdout()

		if asTOML, _ := cmd.Flags().GetBool("toml"); asTOML {
			raw, err := policy.Encode(current)
			if err != nil {
				return errs.Wrap(err, "encode policy")
			}
			_, err = out.Write(raw)
			return err
		}

		source := app.Config.Policy.File
		if source == "" {
			source = "built-in defaults"
		}
		if err := writeHeading(out, "policy ("+source+")"); err != nil {
			return err
		}
		if err := writeRows(out, [][]string{
			{"setting", "value"},
			{"alert_ttl", current.AlertTTL.String()},
			{"message_max_length", strconv.Itoa(current.MessageMaxLength)},
			{"sender_resolved_reward", strconv.Itoa(current.SenderResolvedReward)},
			{"quick_response_reward", fmt.Sprintf("%d within %s", current.QuickResponseReward, current.QuickResponseWindow)},
			{"slow_response_reward", strconv.Itoa(current.SlowResponseReward)},
			{"abuse_penalty", strconv.Itoa(current.AbusePenalty)},
			{"spam_report_penalty", strconv.Itoa(current.SpamReportPenalty)},
			{"max_identifiers_per_owner", strconv.Itoa(current.MaxIdentifiersPerOwner)},
			{"sender_velocity", fmt.Sprintf("%d per %s", current.SenderVelocityMax, current.SenderVelocityWindow)},
			{"registration_velocity", fmt.Sprintf("%d per %s", current.RegistrationVelocityMax, current.RegistrationVelocityWindow)},
			{"proof_mismatches", fmt.Sprintf("%d per %s", current.ProofMismatchMax, current.ProofMismatchWindow)},
			{"suspend_after_flags", fmt.Sprintf("%d per %s", current.SuspendAfterFlags, current.SuspendFlagWindow)},
		}); err != nil {
			return err
		}

		if err := writeHeading(out, "tiers"); err != nil {
			return err
		}
		rows := [][]string{{"tier", "min_score", "daily_quota"}}
		for _, tier := range parking.Tiers() {
			rows = append(rows, []string{string(tier.Name), strconv.Itoa(tier.MinScore), formatQuota(tier.DailyQuota)})
		}
		return writeRows(out, rows)
	}),
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.AddCommand(policyShowCmd)

	policyShowCmd.Flags().Bool("toml", false, "Print the policy as a TOML file")
}
