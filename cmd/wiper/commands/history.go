package commands

import (
	"github.com/spf13/cobra"

	"github.com/datacenter/wiper/cmd/wiper/handlers"
)

// History returns the command for listing recorded runs.
//
// Optional flags:
//
//	--target, -t: Only runs against this CIMC host
//	--limit, -n: Maximum number of runs to list (default 20)
//	--journal: Run journal database path (default ~/.wiper/wiper.db)
func History() *cobra.Command {
	var (
		target      string
		limit       int
		journalPath string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded provisioning runs",
		Long: `List provisioning runs recorded in the journal, newest first.

Each line shows when the run started, the target, the stage it ended
in, the result and the duration. Runs whose transcript was archived
also show the object key.

Examples:
  # The last 20 runs
  wiper history

  # Everything recorded for one controller
  wiper history --target apic1-cimc.example.com -n 100`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.History(cmd.Context(), handlers.HistoryOptions{
				Target:      target,
				Limit:       limit,
				JournalPath: journalPath,
			})
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Only runs against this CIMC host")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Run journal database (default: ~/.wiper/wiper.db)")

	return cmd
}
