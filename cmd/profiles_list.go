package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists profiles in the order they were created",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")

		svc, err := openService()
		if err != nil {
			return err
		}

		profiles, err := svc.ListProfiles(cmd.Context())
		if err != nil {
			if msg, known := describe(err); known {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Cross()+" "+msg)
				return ErrReported
			}
			return Logger.ErrorfAndReturn("failed to list profiles: %v", err)
		}
		Logger.Debugf("Loaded %d profiles", len(profiles))

		out := cmd.OutOrStdout()
		if len(profiles) == 0 {
			fmt.Fprintln(out, "No profiles yet")
			fmt.Fprintln(out, ui.Arrow()+" Run "+ui.Command.Sprint("kahu profiles create <name>")+" to add one")
			return nil
		}

		for _, p := range profiles {
			var b strings.Builder
			b.WriteString(ui.Profile.Sprint(p.Name))
			if p.SystemAccount != "" {
				b.WriteString(" " + ui.Account.Sprint(p.SystemAccount))
			}
			if p.HasSecret {
				b.WriteString(" " + ui.Muted.Sprint("password saved"))
			}
			if p.Avatar != "" {
				b.WriteString(" " + ui.Path.Sprint(p.Avatar))
			}
			fmt.Fprintln(out, b.String())
		}
		return nil
	},
}
