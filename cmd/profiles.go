package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	logger "github.com/PolarWolf314/kahu/internal/logging"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	ProfilesCmd = &cobra.Command{
		Use:   "profiles",
		Short: "Manage launcher profiles and their system accounts",
		Long: `Creates, lists, updates and deletes profiles.

Each profile is bound to its own operating system account. Creating or
deleting a profile creates or deletes that account, which needs
administrator permission: you will be asked for it every time.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Initializing profiles command with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	ProfilesCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	ProfilesCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	ProfilesCmd.AddCommand(listCmd)
	ProfilesCmd.AddCommand(createCmd)
	ProfilesCmd.AddCommand(updateCmd)
	ProfilesCmd.AddCommand(deleteCmd)
	ProfilesCmd.AddCommand(logCmd)
	ProfilesCmd.AddCommand(checkAdminCmd)
}

// Helper functions for testing

// GetProfilesCmd returns the ProfilesCmd for testing.
func GetProfilesCmd() *cobra.Command {
	return ProfilesCmd
}

// ResetGlobalState resets all flags to their defaults for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	resetFlags(ProfilesCmd)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
