package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Target:              "192.0.2.10",
		CIMCUsername:        "admin",
		CIMCPassword:        "secret",
		FabricName:          "ACI Fabric1",
		ControllerNumber:    1,
		NumberOfControllers: 3,
		ControllerName:      "apic1",
		TEPAddressPool:      "10.0.0.0/16",
		InfraVLANID:         4093,
		BDMCAddresses:       "225.0.0.0/15",
		OOBIPAddress:        "192.168.10.1/24",
		OOBDefaultGateway:   "192.168.10.254",
		IntSpeed:            "auto",
		StrongPasswords:     "Y",
		APICAdminPassword:   "ins3965!",
		PowerCycleRecovery:  true,
		Completion:          CompletionLoginBanner,
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_CollectsAllMissing(t *testing.T) {
	cfg := validConfig()
	cfg.CIMCPassword = ""
	cfg.FabricName = ""
	cfg.APICAdminPassword = "  "

	err := cfg.Validate()
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{KeyAPICAdminPassword, KeyCIMCPassword, KeyFabricName}, cfgErr.Missing)
}

func TestValidate_AdminPasswordOnlyOnFirstController(t *testing.T) {
	cfg := validConfig()
	cfg.ControllerNumber = 2
	cfg.APICAdminPassword = ""
	assert.NoError(t, cfg.Validate())

	cfg.ControllerNumber = 1
	err := cfg.Validate()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Missing, KeyAPICAdminPassword)
}

func TestValidate_MulticastPoolOnlyOnFirstController(t *testing.T) {
	cfg := validConfig()
	cfg.BDMCAddresses = ""

	err := cfg.Validate()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Missing, KeyBDMCAddresses)

	cfg.ControllerNumber = 2
	cfg.APICAdminPassword = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ControllerNumberMayExceedClusterSize(t *testing.T) {
	// Cluster membership legality is the fabric's call, not a form
	// check.
	cfg := validConfig()
	cfg.ControllerNumber = 4
	cfg.NumberOfControllers = 3
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "controller number below range",
			mutate:  func(c *Config) { c.ControllerNumber = 0; c.APICAdminPassword = "" },
			wantErr: "outside the supported range 1-9",
		},
		{
			name:    "controller number above range",
			mutate:  func(c *Config) { c.ControllerNumber = 10 },
			wantErr: "outside the supported range 1-9",
		},
		{
			name:    "cluster size above range",
			mutate:  func(c *Config) { c.NumberOfControllers = 12 },
			wantErr: "outside the supported range 1-9",
		},
		{
			name:    "vlan too low",
			mutate:  func(c *Config) { c.InfraVLANID = 0 },
			wantErr: "valid VLAN range 1-4094",
		},
		{
			name:    "vlan too high",
			mutate:  func(c *Config) { c.InfraVLANID = 4095 },
			wantErr: "valid VLAN range 1-4094",
		},
		{
			name:    "unsupported interface speed",
			mutate:  func(c *Config) { c.IntSpeed = "1g" },
			wantErr: `int_speed: "1g" is not one of`,
		},
		{
			name:    "strong passwords answer",
			mutate:  func(c *Config) { c.StrongPasswords = "yes" },
			wantErr: `strong_passwords: "yes" is not one of`,
		},
		{
			name:    "tep pool not a cidr",
			mutate:  func(c *Config) { c.TEPAddressPool = "10.0.0.0" },
			wantErr: "is not a valid CIDR",
		},
		{
			name:    "bd mc pool not a cidr",
			mutate:  func(c *Config) { c.BDMCAddresses = "bad" },
			wantErr: "is not a valid CIDR",
		},
		{
			name:    "oob address not a cidr",
			mutate:  func(c *Config) { c.OOBIPAddress = "192.168.10.1" },
			wantErr: "is not a valid CIDR",
		},
		{
			name:    "gateway not an ip",
			mutate:  func(c *Config) { c.OOBDefaultGateway = "gateway" },
			wantErr: "is not a valid IP address",
		},
		{
			name:    "unknown completion mode",
			mutate:  func(c *Config) { c.Completion = "both" },
			wantErr: `completion: "both" is not one of`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}
