package handlers

import (
	"context"
	"fmt"

	"github.com/datacenter/wiper/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	// wizardFileExists checks if the output file exists.
	wizardFileExists = wizard.FileExists

	// wizardConfirmOverwrite asks before replacing an existing file.
	wizardConfirmOverwrite = wizard.ConfirmOverwrite

	// wizardRun runs the interactive wizard.
	wizardRun = wizard.Run

	// wizardWriteConfig writes the answers as an INI file.
	wizardWriteConfig = wizard.WriteConfig
)

// Init runs the interactive wizard and writes the result to an INI
// file that `wiper run` consumes.
func Init(ctx context.Context, outputPath string) error {
	if wizardFileExists(outputPath) {
		ok, err := wizardConfirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to prompt for confirmation: %w", err)
		}
		if !ok {
			fmt.Println("Aborted, existing file left untouched.")
			return nil
		}
	}

	printWelcome()

	result, err := wizardRun(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	if err := wizardWriteConfig(result, outputPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, result)

	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Println()
	fmt.Println("wiper - APIC provisioning over the CIMC console")
	fmt.Println("===============================================")
	fmt.Println()
	fmt.Println("This wizard describes one fabric and the controller to provision.")
	fmt.Println("Fabric-wide answers go to the defaults block so every controller")
	fmt.Println("shares them; add one section per controller for the rest.")
	fmt.Println()
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, result *wizard.Result) {
	fmt.Println()
	fmt.Println("Configuration saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()

	fmt.Println("Fabric Summary")
	fmt.Println("--------------")
	fmt.Printf("  Fabric:      %s\n", result.FabricName)
	fmt.Printf("  Controllers: %d\n", result.NumberOfControllers)
	fmt.Printf("  TEP pool:    %s\n", result.TEPAddressPool)
	fmt.Printf("  Infra VLAN:  %s\n", result.InfraVLANID)
	fmt.Printf("  Target:      %s (controller %d)\n", result.Target, result.ControllerNumber)
	fmt.Printf("  OOB address: %s\n", result.OOBIPAddress)
	if result.Archive {
		fmt.Printf("  Archive:     %s, bucket %s\n", result.ArchiveEndpoint, result.ArchiveBucket)
	}
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Printf("  1. Review %s if needed\n", outputPath)
	fmt.Println()
	fmt.Println("  2. Preflight the controller:")
	fmt.Printf("     wiper doctor %s -i %s\n", result.Target, outputPath)
	fmt.Println()
	fmt.Println("  3. Wipe and provision it:")
	fmt.Printf("     wiper run %s -i %s\n", result.Target, outputPath)
	fmt.Println()
}
