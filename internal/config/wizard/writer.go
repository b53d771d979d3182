package wizard

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/datacenter/wiper/internal/config"
)

// Function variable for dependency injection in tests.
var confirmOverwrite = defaultConfirmOverwrite

// WriteConfig renders the wizard result as an INI file. Fabric-wide
// answers go into the defaults block so further target sections can be
// added by hand; everything specific to this controller goes into its
// target section. The file carries credentials, so it is written 0600.
func WriteConfig(result *Result, path string) error {
	file := ini.Empty()

	defaults := file.Section(ini.DefaultSection)
	defaults.Key(config.KeyCIMCUsername).SetValue(result.CIMCUsername)
	defaults.Key(config.KeyCIMCPassword).SetValue(result.CIMCPassword)
	defaults.Key(config.KeyFabricName).SetValue(result.FabricName)
	defaults.Key(config.KeyNumberOfControllers).SetValue(strconv.Itoa(result.NumberOfControllers))
	defaults.Key(config.KeyTEPAddressPool).SetValue(result.TEPAddressPool)
	defaults.Key(config.KeyInfraVLANID).SetValue(strings.TrimSpace(result.InfraVLANID))
	defaults.Key(config.KeyBDMCAddresses).SetValue(result.BDMCAddresses)
	defaults.Key(config.KeyAPICAdminPassword).SetValue(result.AdminPassword)
	defaults.Key(config.KeyPowerCycleRecovery).SetValue(strconv.FormatBool(result.PowerCycleRecovery))
	defaults.Key(config.KeyCompletion).SetValue(result.Completion)

	target := file.Section(result.Target)
	target.Key(config.KeyControllerNumber).SetValue(strconv.Itoa(result.ControllerNumber))
	if result.ControllerName != "" {
		target.Key(config.KeyControllerName).SetValue(result.ControllerName)
	}
	target.Key(config.KeyOOBIPAddress).SetValue(result.OOBIPAddress)
	target.Key(config.KeyOOBDefaultGateway).SetValue(result.OOBDefaultGateway)
	target.Key(config.KeyIntSpeed).SetValue(result.IntSpeed)
	target.Key(config.KeyStrongPasswords).SetValue(result.StrongPasswords)

	if result.Archive {
		archive := file.Section("archive")
		archive.Key("endpoint").SetValue(result.ArchiveEndpoint)
		archive.Key("region").SetValue(result.ArchiveRegion)
		archive.Key("bucket").SetValue(result.ArchiveBucket)
		archive.Key("access_key").SetValue(result.ArchiveAccessKey)
		archive.Key("secret_key").SetValue(result.ArchiveSecretKey)
	}

	var buf bytes.Buffer
	buf.WriteString(generateHeader(result.Target, path))
	if _, err := file.WriteTo(&buf); err != nil {
		return fmt.Errorf("rendering configuration: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing configuration: %w", err)
	}
	return nil
}

// generateHeader creates the INI file header comment.
func generateHeader(target, path string) string {
	return fmt.Sprintf(`# wiper provisioning configuration
# Generated by: wiper init
# Generated at: %s
#
# Top-level keys apply to every target; a target section overrides
# them for that controller. Add one section per controller to
# provision a whole fabric from a single file.
#
# Usage:
#   wiper run %s --ini %s

`, time.Now().Format(time.RFC3339), target, path)
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfirmOverwrite prompts the user to confirm overwriting an existing
// file.
func ConfirmOverwrite(path string) (bool, error) {
	return confirmOverwrite(path)
}

func defaultConfirmOverwrite(path string) (bool, error) {
	fmt.Printf("\nFile already exists: %s\n", path)
	fmt.Print("Overwrite? (y/n): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
