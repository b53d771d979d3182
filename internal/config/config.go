package config

import "strconv"

// CompletionMode selects which console milestone ends a provisioning
// run.
type CompletionMode string

const (
	// CompletionLoginBanner waits for the login banner the controller
	// prints once its services are up. The slower but safer default.
	CompletionLoginBanner CompletionMode = "login-banner"

	// CompletionFinalAck declares success as soon as the setup wizard
	// accepts the final configuration acknowledgement.
	CompletionFinalAck CompletionMode = "final-ack"
)

// Config is the fully merged and validated configuration for one
// provisioning run against a single CIMC target.
type Config struct {
	Target string

	// Management channel credentials.
	CIMCUsername string
	CIMCPassword string

	// Setup wizard answers.
	FabricName          string
	ControllerNumber    int
	NumberOfControllers int
	ControllerName      string
	TEPAddressPool      string
	InfraVLANID         int
	BDMCAddresses       string
	OOBIPAddress        string
	OOBDefaultGateway   string
	IntSpeed            string
	StrongPasswords     string
	APICAdminPassword   string

	// FabricNameProvided records whether fabric_name came from the INI
	// file or an override rather than the built-in default. When a run
	// joins a wizard already in progress, this decides between keeping
	// the configuration on the console and re-entering it from the top.
	FabricNameProvided bool

	// PowerCycleRecovery power cycles the chassis and retries once when
	// the console cannot be reached over Serial over LAN.
	PowerCycleRecovery bool

	Completion CompletionMode
}

// FirstController reports whether this run provisions the first
// controller of the fabric. Cluster-wide wizard questions are only
// asked on the first controller.
func (c *Config) FirstController() bool {
	return c.ControllerNumber == 1
}

// Answers returns the wizard answers keyed by option name. The
// provisioning driver looks prompts up here by the answer key of the
// matched step.
func (c *Config) Answers() map[string]string {
	return map[string]string{
		KeyFabricName:          c.FabricName,
		KeyControllerNumber:    strconv.Itoa(c.ControllerNumber),
		KeyNumberOfControllers: strconv.Itoa(c.NumberOfControllers),
		KeyControllerName:      c.ControllerName,
		KeyTEPAddressPool:      c.TEPAddressPool,
		KeyInfraVLANID:         strconv.Itoa(c.InfraVLANID),
		KeyBDMCAddresses:       c.BDMCAddresses,
		KeyOOBIPAddress:        c.OOBIPAddress,
		KeyOOBDefaultGateway:   c.OOBDefaultGateway,
		KeyIntSpeed:            c.IntSpeed,
		KeyStrongPasswords:     c.StrongPasswords,
		KeyAPICAdminPassword:   c.APICAdminPassword,
	}
}
