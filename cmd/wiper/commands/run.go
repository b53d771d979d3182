package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/datacenter/wiper/cmd/wiper/handlers"
	"github.com/datacenter/wiper/internal/config"
)

// overrideFlags maps one command-line flag onto each configuration
// option, so a complete run can be described without an INI file. Flag
// names are the option keys with dashes instead of underscores.
var overrideFlags = []struct {
	key   string
	usage string
}{
	{config.KeyCIMCUsername, "CIMC login user"},
	{config.KeyCIMCPassword, "CIMC login password"},
	{config.KeyFabricName, "Fabric name to enter into the setup wizard"},
	{config.KeyControllerNumber, "Controller ID inside the fabric (1-9)"},
	{config.KeyNumberOfControllers, "Number of controllers in the fabric (1-9)"},
	{config.KeyControllerName, "Controller hostname"},
	{config.KeyTEPAddressPool, "Tunnel endpoint address pool (CIDR)"},
	{config.KeyInfraVLANID, "Infrastructure VLAN ID (1-4094)"},
	{config.KeyBDMCAddresses, "Bridge domain multicast address pool (GIPO)"},
	{config.KeyOOBIPAddress, "Out-of-band management address (CIDR)"},
	{config.KeyOOBDefaultGateway, "Out-of-band default gateway"},
	{config.KeyIntSpeed, "Management interface speed/duplex mode"},
	{config.KeyStrongPasswords, "Enforce strong passwords (Y/n)"},
	{config.KeyAPICAdminPassword, "APIC admin password"},
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// Run returns the command for wiping and provisioning one controller.
//
// The target CIMC is a positional argument. Every configuration option
// has a matching flag that overrides the INI file for this run.
//
// Optional flags:
//
//	--ini-file, -i: INI file with [DEFAULT] and per-target sections (default "wiper.ini")
//	--profile: YAML prompt profile for firmware with reworded prompts
//	--completion: Completion milestone, login-banner or final-ack
//	--no-power-cycle: Disable the power-cycle recovery of a hung console
//	--journal: Run journal database path (default ~/.wiper/wiper.db)
//	--no-journal: Do not record this run in the journal
//	--no-tui: Plain log output instead of the dashboard
//	--verbose, -v: Debug logging, echoed to stderr
//	--quiet, -q: No status output, exit code only
func Run() *cobra.Command {
	var (
		iniFile      string
		profilePath  string
		completion   string
		noPowerCycle bool
		journalPath  string
		noJournal    bool
		noTUI        bool
		verbose      bool
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "run <cimc-host>",
		Short: "Wipe a controller and drive its setup wizard",
		Long: `Wipe an APIC controller and answer its setup wizard.

The command connects to the controller's CIMC over SSH, attaches to
the host console via Serial over LAN, erases the existing configuration
and answers every prompt of the setup wizard with values resolved from
the INI file, built-in defaults and command-line overrides.

The wipe reboots the controller. Expect a run to take 10 to 20 minutes
on physical hardware.

Examples:
  # Provision the controller described by wiper.ini
  wiper run apic1-cimc.example.com

  # Override the fabric name and controller ID for this run
  wiper run apic2-cimc.example.com --fabric-name lab1 --controller-number 2

  # Plain log output for terminals without a TTY
  wiper run apic1-cimc.example.com --no-tui --verbose`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]string{}
			for _, f := range overrideFlags {
				if cmd.Flags().Changed(flagName(f.key)) {
					value, _ := cmd.Flags().GetString(flagName(f.key))
					overrides[f.key] = value
				}
			}
			if completion != "" {
				overrides[config.KeyCompletion] = completion
			}
			if noPowerCycle {
				overrides[config.KeyPowerCycleRecovery] = "false"
			}

			return handlers.Run(cmd.Context(), handlers.RunOptions{
				Target:      args[0],
				IniFile:     iniFile,
				Overrides:   overrides,
				ProfilePath: profilePath,
				JournalPath: journalPath,
				NoJournal:   noJournal,
				NoTUI:       noTUI,
				Verbose:     verbose,
				Quiet:       quiet,
			})
		},
	}

	for _, f := range overrideFlags {
		cmd.Flags().String(flagName(f.key), "", f.usage)
	}
	cmd.Flags().StringVarP(&iniFile, "ini-file", "i", "wiper.ini", "INI file with provisioning parameters")
	cmd.Flags().StringVar(&profilePath, "profile", "", "YAML prompt profile (default: built-in APIC profile)")
	cmd.Flags().StringVar(&completion, "completion", "", "Completion milestone: login-banner or final-ack")
	cmd.Flags().BoolVar(&noPowerCycle, "no-power-cycle", false, "Do not power cycle a console that hangs during reboot")
	cmd.Flags().StringVar(&journalPath, "journal", "", "Run journal database (default: ~/.wiper/wiper.db)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Do not record this run in the journal")
	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable the progress dashboard")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and echo it to stderr")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress status output")

	return cmd
}
