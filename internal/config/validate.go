package config

import (
	"net"
	"sort"
	"strings"
)

// ValidInterfaceSpeeds are the speed/duplex modes the setup wizard
// accepts for the out-of-band management interface.
var ValidInterfaceSpeeds = map[string]bool{
	"auto":           true,
	"10baseT/Half":   true,
	"10baseT/Full":   true,
	"100baseT/Half":  true,
	"100baseT/Full":  true,
	"1000baseT/Full": true,
}

// ValidStrongPasswordAnswers are the answers the wizard accepts for the
// strong password check question.
var ValidStrongPasswordAnswers = map[string]bool{
	"Y": true,
	"n": true,
}

// Validate checks the merged configuration before any connection is
// attempted. Missing required options are collected and reported
// together; the first malformed value fails on its own.
func (c *Config) Validate() error {
	if missing := c.missingOptions(); len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	if err := c.validateWizardAnswers(); err != nil {
		return err
	}
	if err := c.validateNetworks(); err != nil {
		return err
	}
	return c.validateCompletion()
}

// missingOptions returns every required option that is still empty
// after merging, sorted for a stable error message.
func (c *Config) missingOptions() []string {
	required := map[string]string{
		KeyCIMCUsername:      c.CIMCUsername,
		KeyCIMCPassword:      c.CIMCPassword,
		KeyFabricName:        c.FabricName,
		KeyControllerName:    c.ControllerName,
		KeyTEPAddressPool:    c.TEPAddressPool,
		KeyOOBIPAddress:      c.OOBIPAddress,
		KeyOOBDefaultGateway: c.OOBDefaultGateway,
		KeyIntSpeed:          c.IntSpeed,
		KeyStrongPasswords:   c.StrongPasswords,
	}
	// The admin password and the multicast pool are only entered on
	// the first controller; the others inherit them from the cluster.
	if c.FirstController() {
		required[KeyAPICAdminPassword] = c.APICAdminPassword
		required[KeyBDMCAddresses] = c.BDMCAddresses
	}

	var missing []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func (c *Config) validateWizardAnswers() error {
	if c.ControllerNumber < 1 || c.ControllerNumber > 9 {
		return configErrorf("%s: %d is outside the supported range 1-9", KeyControllerNumber, c.ControllerNumber)
	}
	if c.NumberOfControllers < 1 || c.NumberOfControllers > 9 {
		return configErrorf("%s: %d is outside the supported range 1-9", KeyNumberOfControllers, c.NumberOfControllers)
	}
	if c.InfraVLANID < 1 || c.InfraVLANID > 4094 {
		return configErrorf("%s: %d is outside the valid VLAN range 1-4094", KeyInfraVLANID, c.InfraVLANID)
	}
	if !ValidInterfaceSpeeds[c.IntSpeed] {
		return configErrorf("%s: %q is not one of %s", KeyIntSpeed, c.IntSpeed, mapKeys(ValidInterfaceSpeeds))
	}
	if !ValidStrongPasswordAnswers[c.StrongPasswords] {
		return configErrorf("%s: %q is not one of %s", KeyStrongPasswords, c.StrongPasswords, mapKeys(ValidStrongPasswordAnswers))
	}
	return nil
}

func (c *Config) validateNetworks() error {
	cidrs := map[string]string{
		KeyTEPAddressPool: c.TEPAddressPool,
		KeyBDMCAddresses:  c.BDMCAddresses,
		KeyOOBIPAddress:   c.OOBIPAddress,
	}
	for _, key := range []string{KeyTEPAddressPool, KeyBDMCAddresses, KeyOOBIPAddress} {
		value := cidrs[key]
		if value == "" {
			continue
		}
		if _, _, err := net.ParseCIDR(value); err != nil {
			return configErrorf("%s: %q is not a valid CIDR", key, value)
		}
	}
	if net.ParseIP(c.OOBDefaultGateway) == nil {
		return configErrorf("%s: %q is not a valid IP address", KeyOOBDefaultGateway, c.OOBDefaultGateway)
	}
	return nil
}

func (c *Config) validateCompletion() error {
	switch c.Completion {
	case CompletionLoginBanner, CompletionFinalAck:
		return nil
	default:
		return configErrorf("%s: %q is not one of [%s %s]", KeyCompletion, c.Completion, CompletionLoginBanner, CompletionFinalAck)
	}
}

func mapKeys(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "[" + strings.Join(keys, " ") + "]"
}
