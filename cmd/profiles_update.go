package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/internal/ui"
	"github.com/PolarWolf314/kahu/internal/workflows"
)

var (
	updateName          string
	updateAvatar        string
	updatePassword      bool
	updatePasswordStdin bool
	updateForget        bool
)

func init() {
	updateCmd.Flags().StringVar(&updateName, "name", "", "new profile name")
	updateCmd.Flags().StringVar(&updateAvatar, "avatar", "", "new reference to the profile picture")
	updateCmd.Flags().BoolVar(&updatePassword, "password", false, "prompt for a new saved password")
	updateCmd.Flags().BoolVar(&updatePasswordStdin, "password-stdin", false, "read a new saved password from stdin")
	updateCmd.Flags().BoolVar(&updateForget, "forget-password", false, "remove the saved password")
	updateCmd.MarkFlagsMutuallyExclusive("password", "password-stdin", "forget-password")
}

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Renames a profile or changes its avatar or saved password",
	Long: `Updates a profile.

Renaming a profile keeps its system account: the account name does not
change. A new saved password only changes what kahu remembers, not the
password of the system account.

Examples:
  kahu profiles update "Main Account" --name "Work"
  kahu profiles update Work --avatar avatars/work.png
  kahu profiles update Work --password`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting update command")

		req := workflows.UpdateRequest{
			Name:         args[0],
			NewName:      updateName,
			ForgetSecret: updateForget,
		}
		if cmd.Flags().Changed("avatar") {
			req.Avatar = &updateAvatar
		}
		if updatePassword || updatePasswordStdin {
			secret, err := readSecret(cmd, updatePasswordStdin, true, "New saved password: ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to read password: %v", err)
			}
			req.Secret = &secret
		}

		svc, err := openService()
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Updating profile...")
		defer cleanup()

		if err := svc.UpdateProfile(cmd.Context(), req); err != nil {
			return report(spinner, err)
		}

		name := req.Name
		if req.NewName != "" {
			name = req.NewName
		}
		spinner.FinalMSG = ui.Check() + " Updated profile " + ui.Profile.Sprint(name)
		return nil
	},
}
