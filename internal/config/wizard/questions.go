package wizard

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// runTargetGroup prompts for the CIMC address and credentials.
func runTargetGroup(ctx context.Context, result *Result) error {
	result.CIMCUsername = "admin"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("CIMC Address").
				Description("Hostname or IP of the controller's management interface").
				Placeholder("apic1-cimc.example.com").
				Value(&result.Target).
				Validate(validateTarget),
			huh.NewInput().
				Title("CIMC Username").
				Value(&result.CIMCUsername).
				Validate(validateRequired),
			huh.NewInput().
				Title("CIMC Password").
				EchoMode(huh.EchoModePassword).
				Value(&result.CIMCPassword).
				Validate(validatePassword),
		).Title("CIMC Access"),
	).RunWithContext(ctx)
}

// runFabricGroup prompts for the answers shared by every controller of
// the fabric.
func runFabricGroup(ctx context.Context, result *Result) error {
	result.FabricName = "ACI Fabric1"
	result.NumberOfControllers = 3
	result.TEPAddressPool = "10.0.0.0/16"
	result.InfraVLANID = "4093"
	result.BDMCAddresses = "225.0.0.0/15"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Fabric Name").
				Value(&result.FabricName).
				Validate(validateRequired),
			huh.NewSelect[int]().
				Title("Number of Controllers").
				Description("Cluster size the fabric is built for").
				Options(controllerCountOptions()...).
				Value(&result.NumberOfControllers),
			huh.NewInput().
				Title("TEP Address Pool").
				Description("Address pool for tunnel endpoint addresses").
				Value(&result.TEPAddressPool).
				Validate(validateCIDR),
			huh.NewInput().
				Title("Infra VLAN ID").
				Description("VLAN for the infra network (1-4094)").
				Value(&result.InfraVLANID).
				Validate(validateVLANID),
			huh.NewInput().
				Title("BD Multicast Address Pool (GIPO)").
				Value(&result.BDMCAddresses).
				Validate(validateCIDR),
		).Title("Fabric"),
	).RunWithContext(ctx)
}

// runControllerGroup prompts for the answers specific to this
// controller.
func runControllerGroup(ctx context.Context, result *Result) error {
	result.ControllerNumber = 1
	result.OOBIPAddress = "192.168.10.1/24"
	result.OOBDefaultGateway = "192.168.10.254"
	result.IntSpeed = "auto"
	result.StrongPasswords = "Y"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Controller ID").
				Description("Position of this controller in the cluster").
				Options(controllerCountOptions()...).
				Value(&result.ControllerNumber),
			huh.NewInput().
				Title("Controller Name").
				Description("Leave empty for apic<controller id>").
				Placeholder("apic1").
				Value(&result.ControllerName),
			huh.NewInput().
				Title("Out-of-Band IP Address").
				Description("Management address with prefix length").
				Value(&result.OOBIPAddress).
				Validate(validateCIDR),
			huh.NewInput().
				Title("Out-of-Band Default Gateway").
				Value(&result.OOBDefaultGateway).
				Validate(validateIP),
			huh.NewSelect[string]().
				Title("Interface Speed/Duplex").
				Options(speedOptions()...).
				Value(&result.IntSpeed),
			huh.NewSelect[string]().
				Title("Strong Passwords").
				Options(strongPasswordOptions...).
				Value(&result.StrongPasswords),
		).Title("Controller"),
	).RunWithContext(ctx)
}

// runPasswordGroup prompts for the admin password twice. The password
// is asked by the wizard on the first controller and used for the
// rescue login when re-wiping an already configured one.
func runPasswordGroup(ctx context.Context, result *Result) error {
	var confirm string

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("APIC Admin Password").
				EchoMode(huh.EchoModePassword).
				Value(&result.AdminPassword).
				Validate(validatePassword),
			huh.NewInput().
				Title("Reenter Password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != result.AdminPassword {
						return errPasswordMismatch
					}
					return nil
				}),
		).Title("Admin Password"),
	).RunWithContext(ctx)
}

// runBehaviorGroup prompts for recovery and completion behavior.
func runBehaviorGroup(ctx context.Context, result *Result) error {
	result.PowerCycleRecovery = true
	result.Completion = completionOptions[0].Value

	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Power Cycle on Silent Console?").
				Description("Power cycle the chassis once when the console shows nothing recognizable").
				Value(&result.PowerCycleRecovery),
			huh.NewSelect[string]().
				Title("Completion Milestone").
				Options(completionOptions...).
				Value(&result.Completion),
		).Title("Run Behavior"),
	).RunWithContext(ctx)
}

// runArchiveGroup optionally configures transcript uploads.
func runArchiveGroup(ctx context.Context, result *Result) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Archive Transcripts?").
				Description("Upload console transcripts to S3-compatible object storage").
				Value(&result.Archive),
		).Title("Transcript Archive"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if !result.Archive {
		return nil
	}

	result.ArchiveRegion = "us-east-1"
	result.ArchiveBucket = "wiper-transcripts"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Endpoint").
				Placeholder("http://minio.lab:9000").
				Value(&result.ArchiveEndpoint).
				Validate(validateRequired),
			huh.NewInput().
				Title("Region").
				Value(&result.ArchiveRegion).
				Validate(validateRequired),
			huh.NewInput().
				Title("Bucket").
				Value(&result.ArchiveBucket).
				Validate(validateRequired),
			huh.NewInput().
				Title("Access Key").
				Value(&result.ArchiveAccessKey).
				Validate(validateRequired),
			huh.NewInput().
				Title("Secret Key").
				EchoMode(huh.EchoModePassword).
				Value(&result.ArchiveSecretKey).
				Validate(validateRequired),
		).Title("Object Storage"),
	).RunWithContext(ctx)
}

func validateTarget(s string) error {
	if strings.TrimSpace(s) == "" {
		return errTargetRequired
	}
	return nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return errValueRequired
	}
	return nil
}

func validatePassword(s string) error {
	if s == "" {
		return errPasswordRequired
	}
	return nil
}

func validateCIDR(s string) error {
	if _, _, err := net.ParseCIDR(s); err != nil {
		return errCIDRInvalid
	}
	return nil
}

func validateIP(s string) error {
	if net.ParseIP(s) == nil {
		return errIPInvalid
	}
	return nil
}

func validateVLANID(s string) error {
	vlan, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || vlan < 1 || vlan > 4094 {
		return errVLANInvalid
	}
	return nil
}
