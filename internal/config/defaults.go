package config

// Option keys as they appear in the INI file and on the command line.
const (
	KeyCIMCUsername        = "cimc_username"
	KeyCIMCPassword        = "cimc_password"
	KeyFabricName          = "fabric_name"
	KeyControllerNumber    = "controller_number"
	KeyNumberOfControllers = "number_of_controllers"
	KeyControllerName      = "controller_name"
	KeyTEPAddressPool      = "tep_address_pool"
	KeyInfraVLANID         = "infra_vlan_id"
	KeyBDMCAddresses       = "bd_mc_addresses"
	KeyOOBIPAddress        = "oob_ip_address"
	KeyOOBDefaultGateway   = "oob_default_gateway"
	KeyIntSpeed            = "int_speed"
	KeyStrongPasswords     = "strong_passwords"
	KeyAPICAdminPassword   = "apic_admin_password"
	KeySimulator           = "simulator"
	KeyPowerCycleRecovery  = "power_cycle_recovery"
	KeyCompletion          = "completion"
)

var knownKeys = map[string]bool{
	KeyCIMCUsername:        true,
	KeyCIMCPassword:        true,
	KeyFabricName:          true,
	KeyControllerNumber:    true,
	KeyNumberOfControllers: true,
	KeyControllerName:      true,
	KeyTEPAddressPool:      true,
	KeyInfraVLANID:         true,
	KeyBDMCAddresses:       true,
	KeyOOBIPAddress:        true,
	KeyOOBDefaultGateway:   true,
	KeyIntSpeed:            true,
	KeyStrongPasswords:     true,
	KeyAPICAdminPassword:   true,
	KeySimulator:           true,
	KeyPowerCycleRecovery:  true,
	KeyCompletion:          true,
}

// builtinDefaults is the lowest configuration layer. These match the
// factory defaults the setup wizard itself offers, so a near-empty INI
// file still produces a fabric that boots.
func builtinDefaults() map[string]string {
	return map[string]string{
		KeyCIMCUsername:        "admin",
		KeyFabricName:          "ACI Fabric1",
		KeyControllerNumber:    "1",
		KeyNumberOfControllers: "3",
		KeyControllerName:      "apic%(controller_number)s",
		KeyTEPAddressPool:      "10.0.0.0/16",
		KeyInfraVLANID:         "4093",
		KeyBDMCAddresses:       "225.0.0.0/15",
		KeyOOBIPAddress:        "192.168.10.1/24",
		KeyOOBDefaultGateway:   "192.168.10.254",
		KeyIntSpeed:            "auto",
		KeyStrongPasswords:     "Y",
		KeySimulator:           "false",
		KeyPowerCycleRecovery:  "true",
		KeyCompletion:          string(CompletionLoginBanner),
	}
}
