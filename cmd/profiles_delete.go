package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/internal/ui"
	"github.com/PolarWolf314/kahu/internal/utils"
)

var deleteYes bool

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "skip the confirmation prompt")
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Deletes a profile and its system account",
	Long: `Deletes a profile and the system account bound to it, including the
account's home directory.

If the account cannot be deleted, for example because administrator
permission was not granted, the profile is removed anyway and the account
is left in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting delete command")
		name := args[0]

		if !deleteYes && utils.IsTerminal() {
			if !confirmAction(cmd, "Delete profile "+ui.Profile.Sprint(name)+" and its system account?") {
				Logger.WarnfUser("Deletion cancelled")
				return nil
			}
		}

		svc, err := openService()
		if err != nil {
			return err
		}

		spinner, cleanup := startElevatedSpinner(svc, cmd.OutOrStdout(), "Deleting profile (approve the administrator prompt)...")
		defer cleanup()

		res, err := svc.DeleteProfile(cmd.Context(), name)
		if err != nil {
			return report(spinner, err)
		}

		final := ui.Check() + " Deleted profile " + ui.Profile.Sprint(name)
		switch {
		case res.SystemAccount == "":
		case res.DeprovisionErr != nil:
			final += "\n" + ui.Warning.Sprint("⚠") + " The account " + ui.Account.Sprint(res.SystemAccount) +
				" was left in place " + ui.Muted.Sprint(res.DeprovisionErr.Error())
		case res.Deprovisioned:
			final += " and account " + ui.Account.Sprint(res.SystemAccount)
		default:
			final += "\n" + ui.Arrow() + " The account " + ui.Account.Sprint(res.SystemAccount) + " no longer existed"
		}
		spinner.FinalMSG = final
		return nil
	},
}
