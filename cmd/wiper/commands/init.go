package commands

import (
	"github.com/spf13/cobra"

	"github.com/datacenter/wiper/cmd/wiper/handlers"
)

// Init returns the command for interactively creating an INI file.
//
// This command guides operators through describing a fabric and one
// controller using an interactive wizard, then writes the answers as a
// commented INI file that `wiper run` consumes.
//
// Flags:
//
//	--output, -o: Path to the output file (default "wiper.ini")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a provisioning INI file",
		Long: `Interactively create a provisioning INI file.

This command walks you through describing your fabric and the first
controller to provision. It asks about:

  - CIMC access (address, user, password)
  - Fabric identity (name, controller count, TEP pool, infra VLAN)
  - The controller (ID, name, out-of-band addressing, link speed)
  - The APIC admin password
  - Run behavior (completion milestone, console recovery)
  - Optional transcript archiving to an S3-compatible bucket

Fabric-wide answers land in the defaults block so later controllers
reuse them; per-controller answers land in a section named after the
CIMC host. Add one section per controller for the rest of the fabric.

Examples:
  # Create wiper.ini in the current directory
  wiper init

  # Write somewhere else
  wiper init -o fabrics/lab1.ini`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "wiper.ini", "Output file path")

	return cmd
}
