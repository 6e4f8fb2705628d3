package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/cmd"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "kahu",
	Short: "Kahu - profiles that each run as their own system account.",
	Long: `Kahu keeps a list of launcher profiles. Every profile is bound to a
separate operating system account, and can remember that account's password
encrypted on this machine.

Usage:
  kahu <command> [flags]

Available Commands:
  profiles   Manage profiles and their system accounts

Run 'kahu help <command>' for more details on a specific command.
`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		figure.NewColorFigure("kahu", "alligator2", "green", true).Print()
		fmt.Println()
		fmt.Println("Welcome to kahu! Run 'kahu --help' to see available commands.")
	},
}

func init() {
	rootCmd.SetVersionTemplate(figure.NewFigure("kahu", "alligator2", true).String() + "\nkahu {{.Version}}\n")
	rootCmd.AddCommand(cmd.ProfilesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cmd.ErrReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
