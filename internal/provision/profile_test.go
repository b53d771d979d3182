package provision_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacenter/wiper/internal/provision"
)

func TestAPICProfile_Catalogue(t *testing.T) {
	profile := provision.APICProfile()
	require.NoError(t, profile.Compile())

	assert.Equal(t, "apic", profile.Name)
	assert.Equal(t, 1, profile.Version)
	assert.Equal(t, "rescue-user", profile.RescueUser)
	assert.Equal(t, "eraseconfig setup", profile.WipeCommand)

	wantOrder := []string{
		"fabric_name",
		"number_of_controllers",
		"controller_id",
		"controller_name",
		"tep_address_pool",
		"infra_vlan_id",
		"bd_mc_addresses",
		"oob_ip_address",
		"oob_default_gateway",
		"int_speed",
		"strong_passwords",
		"apic_admin_password",
	}
	assert.Equal(t, wantOrder, stepNames(profile.Steps))

	byName := make(map[string]provision.Step, len(profile.Steps))
	for _, step := range profile.Steps {
		byName[step.Name] = step
	}

	password := byName["apic_admin_password"]
	assert.True(t, password.Secret)
	assert.True(t, password.FirstControllerOnly)
	assert.NotEmpty(t, password.Confirm)

	assert.True(t, byName["bd_mc_addresses"].FirstControllerOnly)
	assert.True(t, byName["strong_passwords"].FirstControllerOnly)
	assert.False(t, byName["controller_id"].FirstControllerOnly)
}

func minimalProfile() *provision.Profile {
	return &provision.Profile{
		Name:           "test",
		Version:        1,
		RescueUser:     "rescue-user",
		WipeCommand:    "eraseconfig setup",
		LoginPrompt:    `login:`,
		PasswordPrompt: `Password:`,
		ShellPrompt:    `:~>`,
		PressAnyKey:    `Press any key to continue`,
		WipeConfirm:    `\(Y/n\):`,
		EditConfig:     `edit the configuration`,
		LoginBanner:    `login:`,
		Steps: []provision.Step{{
			Name:      "fabric_name",
			Pattern:   `Enter the fabric name \[`,
			AnswerKey: "fabric_name",
		}},
	}
}

func TestProfile_Compile(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*provision.Profile)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(p *provision.Profile) {},
		},
		{
			name:    "missing name",
			mutate:  func(p *provision.Profile) { p.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "version zero",
			mutate:  func(p *provision.Profile) { p.Version = 0 },
			wantErr: "version must be at least 1",
		},
		{
			name:    "no steps",
			mutate:  func(p *provision.Profile) { p.Steps = nil },
			wantErr: "no wizard steps",
		},
		{
			name:    "missing rescue user",
			mutate:  func(p *provision.Profile) { p.RescueUser = "" },
			wantErr: "rescue user",
		},
		{
			name:    "missing fixed pattern",
			mutate:  func(p *provision.Profile) { p.PressAnyKey = "" },
			wantErr: "pattern press-any-key is required",
		},
		{
			name:    "invalid fixed pattern",
			mutate:  func(p *provision.Profile) { p.LoginPrompt = `login: [` },
			wantErr: "pattern login-prompt",
		},
		{
			name:    "step without name",
			mutate:  func(p *provision.Profile) { p.Steps[0].Name = "" },
			wantErr: "has no name",
		},
		{
			name: "duplicate step",
			mutate: func(p *provision.Profile) {
				p.Steps = append(p.Steps, p.Steps[0])
			},
			wantErr: `duplicate step name "fabric_name"`,
		},
		{
			name:    "step without answer key",
			mutate:  func(p *provision.Profile) { p.Steps[0].AnswerKey = "" },
			wantErr: "has no answer key",
		},
		{
			name:    "invalid step pattern",
			mutate:  func(p *provision.Profile) { p.Steps[0].Pattern = `Enter [` },
			wantErr: "step fabric_name",
		},
		{
			name:    "invalid confirm pattern",
			mutate:  func(p *provision.Profile) { p.Steps[0].Confirm = `Reenter [` },
			wantErr: "step fabric_name confirm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := minimalProfile()
			tt.mutate(profile)
			err := profile.Compile()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestProfile_CompileIdempotent(t *testing.T) {
	profile := provision.APICProfile()
	require.NoError(t, profile.Compile())
	require.NoError(t, profile.Compile())
}

const labProfileYAML = `
name: apic-lab
version: 2
rescue_user: rescue-user
wipe_command: eraseconfig setup
login_prompt: 'login:'
password_prompt: 'Password:'
shell_prompt: ':~>'
press_any_key: 'Press any key to continue'
wipe_confirm: 'cleanup the initial setup data\? .* \(Y/n\):'
edit_config: 'edit the configuration\? \(y/n\)'
login_banner: 'login:'
steps:
  - name: fabric_name
    pattern: 'Enter the fabric name \['
    answer_key: fabric_name
  - name: apic_admin_password
    pattern: 'Enter the password for admin:'
    confirm: 'Reenter the password for admin:'
    answer_key: apic_admin_password
    secret: true
    first_controller_only: true
`

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apic-lab.yaml")
	require.NoError(t, os.WriteFile(path, []byte(labProfileYAML), 0o600))

	profile, err := provision.LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "apic-lab", profile.Name)
	assert.Equal(t, 2, profile.Version)
	require.Len(t, profile.Steps, 2)
	assert.Equal(t, "fabric_name", profile.Steps[0].Name)
	assert.True(t, profile.Steps[1].Secret)
	assert.True(t, profile.Steps[1].FirstControllerOnly)
	assert.Equal(t, `Reenter the password for admin:`, profile.Steps[1].Confirm)
}

func TestLoadProfile_Errors(t *testing.T) {
	_, err := provision.LoadProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "reading profile")

	badYAML := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("steps: {not: [valid"), 0o600))
	_, err = provision.LoadProfile(badYAML)
	assert.ErrorContains(t, err, "parsing profile")

	incomplete := filepath.Join(t.TempDir(), "incomplete.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("name: x\nversion: 1\n"), 0o600))
	_, err = provision.LoadProfile(incomplete)
	assert.ErrorContains(t, err, "no wizard steps")
}
