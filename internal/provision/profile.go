package provision

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/expect"
)

// Step describes one prompt of the setup wizard and where its answer
// comes from.
type Step struct {
	Name      string `yaml:"name"`
	Pattern   string `yaml:"pattern"`
	AnswerKey string `yaml:"answer_key"`

	// Confirm is an optional re-entry prompt the wizard shows right
	// after the answer, answered with the same value again.
	Confirm string `yaml:"confirm,omitempty"`

	// Secret masks the answer in events and logs.
	Secret bool `yaml:"secret,omitempty"`

	// FirstControllerOnly marks prompts the wizard only asks while
	// provisioning controller 1. The driver never skips steps on its
	// own; this documents which prompts may not appear.
	FirstControllerOnly bool `yaml:"first_controller_only,omitempty"`
}

// Profile is the versioned prompt catalogue for one controller
// platform and firmware line. Firmware updates that reword prompts
// ship as a new profile version instead of code changes.
type Profile struct {
	Name    string `yaml:"name"`
	Version int    `yaml:"version"`

	RescueUser  string `yaml:"rescue_user"`
	WipeCommand string `yaml:"wipe_command"`

	LoginPrompt    string `yaml:"login_prompt"`
	PasswordPrompt string `yaml:"password_prompt"`
	ShellPrompt    string `yaml:"shell_prompt"`
	PressAnyKey    string `yaml:"press_any_key"`
	WipeConfirm    string `yaml:"wipe_confirm"`
	EditConfig     string `yaml:"edit_config"`
	LoginBanner    string `yaml:"login_banner"`

	Steps []Step `yaml:"steps"`

	compiled *compiledProfile
}

type compiledProfile struct {
	login       expect.Pattern
	password    expect.Pattern
	shell       expect.Pattern
	pressAnyKey expect.Pattern
	wipeConfirm expect.Pattern
	editConfig  expect.Pattern
	banner      expect.Pattern

	steps  []compiledStep
	byName map[string]int
}

type compiledStep struct {
	pattern expect.Pattern
	confirm expect.Pattern
}

// Names of the fixed (non-step) patterns.
const (
	patLogin       = "login-prompt"
	patPassword    = "password-prompt"
	patShell       = "shell-prompt"
	patPressAnyKey = "press-any-key"
	patWipeConfirm = "wipe-confirm"
	patEditConfig  = "edit-config"
	patLoginBanner = "login-banner"
)

// APICProfile returns the built-in profile for APIC controllers on UCS
// C220 hardware, matching the prompts of the 4.x and 5.x setup
// wizards.
func APICProfile() *Profile {
	return &Profile{
		Name:    "apic",
		Version: 1,

		RescueUser:  "rescue-user",
		WipeCommand: "eraseconfig setup",

		LoginPrompt:    `login:`,
		PasswordPrompt: `Password:`,
		ShellPrompt:    `:~>`,
		PressAnyKey:    `Press any key to continue`,
		WipeConfirm:    `Do you want to cleanup the initial setup data\? The system will be REBOOTED\. \(Y/n\):`,
		EditConfig:     `Would you like to edit the configuration\? \(y/n\)`,
		LoginBanner:    `login:`,

		Steps: []Step{
			{
				Name:      "fabric_name",
				Pattern:   `Enter the fabric name \[`,
				AnswerKey: config.KeyFabricName,
			},
			{
				Name:      "number_of_controllers",
				Pattern:   `Enter the number of controllers in the fabric \(1-9\) \[`,
				AnswerKey: config.KeyNumberOfControllers,
			},
			{
				Name:      "controller_id",
				Pattern:   `Enter the controller ID \(1-[0-9]\) \[`,
				AnswerKey: config.KeyControllerNumber,
			},
			{
				Name:      "controller_name",
				Pattern:   `Enter the controller name \[`,
				AnswerKey: config.KeyControllerName,
			},
			{
				Name:      "tep_address_pool",
				Pattern:   `Enter address pool for TEP addresses \[`,
				AnswerKey: config.KeyTEPAddressPool,
			},
			{
				Name:      "infra_vlan_id",
				Pattern:   `Enter the VLAN ID for infra network \(1-4094\)`,
				AnswerKey: config.KeyInfraVLANID,
			},
			{
				Name:                "bd_mc_addresses",
				Pattern:             `Enter address pool for BD multicast addresses \(GIPO\) \[`,
				AnswerKey:           config.KeyBDMCAddresses,
				FirstControllerOnly: true,
			},
			{
				Name:      "oob_ip_address",
				Pattern:   `Enter the IP address \[`,
				AnswerKey: config.KeyOOBIPAddress,
			},
			{
				Name:      "oob_default_gateway",
				Pattern:   `Enter the IP address of the default gateway \[`,
				AnswerKey: config.KeyOOBDefaultGateway,
			},
			{
				Name:      "int_speed",
				Pattern:   `Enter the interface speed/duplex mode \[`,
				AnswerKey: config.KeyIntSpeed,
			},
			{
				Name:                "strong_passwords",
				Pattern:             `Enable strong passwords\? \[`,
				AnswerKey:           config.KeyStrongPasswords,
				FirstControllerOnly: true,
			},
			{
				Name:                "apic_admin_password",
				Pattern:             `Enter the password for admin:`,
				Confirm:             `Reenter the password for admin:`,
				AnswerKey:           config.KeyAPICAdminPassword,
				Secret:              true,
				FirstControllerOnly: true,
			},
		},
	}
}

// LoadProfile reads a profile from a YAML file and compiles it. Used
// for lab firmware whose prompts deviate from the built-in catalogue.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var profile Profile
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	if err := profile.Compile(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &profile, nil
}

// Compile validates the profile and builds its patterns. It is
// idempotent; the driver calls it defensively.
func (p *Profile) Compile() error {
	if p.compiled != nil {
		return nil
	}
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.Version < 1 {
		return fmt.Errorf("profile version must be at least 1")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("profile has no wizard steps")
	}
	if p.RescueUser == "" || p.WipeCommand == "" {
		return fmt.Errorf("profile must name a rescue user and a wipe command")
	}

	c := &compiledProfile{byName: make(map[string]int, len(p.Steps))}
	var err error
	fixed := []struct {
		name string
		expr string
		dst  *expect.Pattern
	}{
		{patLogin, p.LoginPrompt, &c.login},
		{patPassword, p.PasswordPrompt, &c.password},
		{patShell, p.ShellPrompt, &c.shell},
		{patPressAnyKey, p.PressAnyKey, &c.pressAnyKey},
		{patWipeConfirm, p.WipeConfirm, &c.wipeConfirm},
		{patEditConfig, p.EditConfig, &c.editConfig},
		{patLoginBanner, p.LoginBanner, &c.banner},
	}
	for _, f := range fixed {
		if f.expr == "" {
			return fmt.Errorf("pattern %s is required", f.name)
		}
		if *f.dst, err = expect.NewPattern(f.name, f.expr); err != nil {
			return fmt.Errorf("pattern %s: %w", f.name, err)
		}
	}

	for i, step := range p.Steps {
		if step.Name == "" {
			return fmt.Errorf("step %d has no name", i)
		}
		if _, dup := c.byName[step.Name]; dup {
			return fmt.Errorf("duplicate step name %q", step.Name)
		}
		if step.AnswerKey == "" {
			return fmt.Errorf("step %s has no answer key", step.Name)
		}
		var cs compiledStep
		if cs.pattern, err = expect.NewPattern(step.Name, step.Pattern); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
		if step.Confirm != "" {
			if cs.confirm, err = expect.NewPattern(step.Name+".confirm", step.Confirm); err != nil {
				return fmt.Errorf("step %s confirm: %w", step.Name, err)
			}
		}
		c.byName[step.Name] = i
		c.steps = append(c.steps, cs)
	}

	p.compiled = c
	return nil
}

// stepIndex returns the index of the step whose pattern produced the
// given match name, or -1 when the name belongs to a fixed pattern.
func (p *Profile) stepIndex(name string) int {
	if i, ok := p.compiled.byName[name]; ok {
		return i
	}
	return -1
}
