package cmd

import (
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/internal/ui"
	"github.com/PolarWolf314/kahu/internal/workflows"
)

var (
	createAvatar        string
	createNoRemember    bool
	createPasswordStdin bool
)

func init() {
	createCmd.Flags().StringVar(&createAvatar, "avatar", "", "reference to the profile picture")
	createCmd.Flags().BoolVar(&createNoRemember, "no-remember", false, "do not save the password with the profile")
	createCmd.Flags().BoolVar(&createPasswordStdin, "password-stdin", false, "read the password from stdin")
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Creates a profile and the system account it runs as",
	Long: `Creates a profile and a system account for it.

The account name is derived from the profile name: characters other than
letters, digits, '-' and '_' become '_', and the result is cut to the
platform's length limit. If that account already exists it is reused as is
and its password is not changed.

The password is saved with the profile, encrypted, unless --no-remember is
given.

Examples:
  # Prompt for the password
  kahu profiles create "Main Account"

  # Read the password from a secrets manager
  pass show kahu/main | kahu profiles create "Main Account" --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting create command")
		name := args[0]

		secret, err := readSecret(cmd, createPasswordStdin, true, "Password for the new account: ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read password: %v", err)
		}

		svc, err := openService()
		if err != nil {
			return err
		}

		spinner, cleanup := startElevatedSpinner(svc, cmd.OutOrStdout(), "Creating profile (approve the administrator prompt)...")
		defer cleanup()

		res, err := svc.CreateProfile(cmd.Context(), workflows.CreateRequest{
			Name:     name,
			Avatar:   createAvatar,
			Secret:   secret,
			Remember: !createNoRemember,
		})
		if err != nil {
			return report(spinner, err)
		}

		how := "new account"
		if !res.AccountCreated {
			how = "existing account"
		}
		final := ui.Check() + " Created profile " + ui.Profile.Sprint(name) + " bound to " + how + " " + ui.Account.Sprint(res.SystemAccount)
		if createNoRemember {
			final += "\n" + ui.Arrow() + " The password was not saved"
		}
		spinner.FinalMSG = final
		Logger.Infof("Create command completed for %s", name)
		return nil
	},
}
