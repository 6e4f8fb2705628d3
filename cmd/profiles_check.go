package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/internal/accounts"
	"github.com/PolarWolf314/kahu/internal/ui"
)

// isElevated is replaced in tests.
var isElevated = accounts.IsElevated

var checkAdminCmd = &cobra.Command{
	Use:   "check-admin",
	Short: "Reports whether kahu already runs with administrator rights",
	Long: `Reports whether the current process runs with administrator rights.

This is informational: creating and deleting profiles asks for permission
on every call either way.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if isElevated() {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Check()+" Running with administrator rights")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Cross()+" Not running with administrator rights")
			fmt.Fprintln(cmd.OutOrStdout(), ui.Arrow()+" You will be asked for permission when accounts change")
		}
		return nil
	},
}
