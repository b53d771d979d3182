package wizard

import (
	"context"
	"fmt"
)

// Result holds the answers collected by the interactive wizard, ready
// to be written as an INI file.
type Result struct {
	// CIMC access.
	Target       string
	CIMCUsername string
	CIMCPassword string

	// Fabric-wide answers, written to the defaults block.
	FabricName          string
	NumberOfControllers int
	TEPAddressPool      string
	InfraVLANID         string
	BDMCAddresses       string

	// Per-controller answers, written to the target section.
	ControllerNumber  int
	ControllerName    string
	OOBIPAddress      string
	OOBDefaultGateway string
	IntSpeed          string
	StrongPasswords   string
	AdminPassword     string

	// Run behavior.
	PowerCycleRecovery bool
	Completion         string

	// Optional transcript archive.
	Archive          bool
	ArchiveEndpoint  string
	ArchiveRegion    string
	ArchiveBucket    string
	ArchiveAccessKey string
	ArchiveSecretKey string
}

// Run walks the operator through all question groups. The context
// cancels the forms, so Ctrl+C unwinds cleanly.
func Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	if err := runTargetGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("cimc access: %w", err)
	}
	if err := runFabricGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("fabric: %w", err)
	}
	if err := runControllerGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	if err := runPasswordGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("admin password: %w", err)
	}
	if err := runBehaviorGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("run behavior: %w", err)
	}
	if err := runArchiveGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	return result, nil
}
