package commands

import (
	"github.com/spf13/cobra"

	"github.com/datacenter/wiper/cmd/wiper/handlers"
)

// Doctor returns the command for preflighting a controller.
//
// This command checks everything a run depends on without changing the
// controller: configuration resolution, TCP reach, SSH authentication
// and the Serial over LAN setting.
//
// Optional flags:
//
//	--ini-file, -i: INI file with provisioning parameters (default "wiper.ini")
//	--journal: Run journal database path (default ~/.wiper/wiper.db)
func Doctor() *cobra.Command {
	var (
		iniFile     string
		journalPath string
	)

	cmd := &cobra.Command{
		Use:   "doctor <cimc-host>",
		Short: "Preflight a controller without changing it",
		Long: `Check that a provisioning run against this controller can work.

The checks, in order:

  - Configuration resolves and validates for the target
  - The CIMC answers on its SSH port
  - The CIMC accepts the configured credentials
  - Serial over LAN is already configured (informational; a run
    enables it when it is not)
  - The run journal opens
  - The transcript archive answers, when one is configured

Nothing on the controller is modified.

Examples:
  # Preflight the first controller
  wiper doctor apic1-cimc.example.com

  # Preflight against a different INI file
  wiper doctor apic1-cimc.example.com -i fabrics/lab1.ini`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Doctor(cmd.Context(), args[0], iniFile, journalPath)
		},
	}

	cmd.Flags().StringVarP(&iniFile, "ini-file", "i", "wiper.ini", "INI file with provisioning parameters")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Run journal database (default: ~/.wiper/wiper.db)")

	return cmd
}
