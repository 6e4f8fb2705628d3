package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/internal/audit"
	"github.com/PolarWolf314/kahu/internal/ui"
	"github.com/PolarWolf314/kahu/internal/workflows"
)

var (
	logLimit     int
	logReverse   bool
	logProfile   string
	logOperation string
	logJSON      bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "limit number of entries shown")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logProfile, "profile", "", "filter by profile name")
	logCmd.Flags().StringVar(&logOperation, "operation", "", "filter by operation type (comma-separated)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON array")
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Shows the history of profile changes",
	Long: `Displays the audit log of profile operations.

Saved passwords are never recorded.

Examples:
  kahu profiles log                       # View full log
  kahu profiles log -n 10                 # Last 10 entries
  kahu profiles log --reverse             # Most recent first
  kahu profiles log --profile Main        # One profile, including renames
  kahu profiles log --operation delete    # Filter by operation
  kahu profiles log --json                # JSON output`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting log command")

		svc, err := openService()
		if err != nil {
			return err
		}

		opts := workflows.HistoryOptions{
			Profile: logProfile,
			Limit:   logLimit,
			Reverse: logReverse,
		}
		if logOperation != "" {
			opts.Operations = strings.Split(logOperation, ",")
		}

		entries, err := svc.History(cmd.Context(), opts)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read audit log: %v", err)
		}
		Logger.Debugf("Showing %d audit entries", len(entries))

		out := cmd.OutOrStdout()
		if logJSON {
			if entries == nil {
				entries = []audit.Entry{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No audit log entries found.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintln(out, formatLogEntry(e))
		}
		return nil
	},
}

func formatLogEntry(e audit.Entry) string {
	var b strings.Builder
	b.WriteString(ui.Muted.Sprint(e.Timestamp))
	fmt.Fprintf(&b, " %-6s ", e.Operation)
	b.WriteString(ui.Profile.Sprint(e.Profile))
	if e.Account != "" {
		b.WriteString(" " + ui.Account.Sprint(e.Account))
	}

	switch {
	case e.RenamedFrom != "":
		b.WriteString(" " + ui.Muted.Sprint("renamed from "+e.RenamedFrom))
	case e.Operation == audit.OpCreate && e.AccountCreated:
		b.WriteString(" " + ui.Muted.Sprint("new account"))
	case e.Operation == audit.OpDelete && e.Deprovisioned:
		b.WriteString(" " + ui.Muted.Sprint("account deleted"))
	case e.Operation == audit.OpDelete && e.Account != "":
		b.WriteString(" " + ui.Muted.Sprint("account kept"))
	}
	return b.String()
}
