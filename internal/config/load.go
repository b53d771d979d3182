package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// maxInterpolationDepth bounds %(name)s expansion so a self-referencing
// value fails instead of looping.
const maxInterpolationDepth = 10

// Options carries the raw inputs of a run before any merging happens.
type Options struct {
	// Target is the CIMC address or hostname. It selects the INI
	// section layered on top of [DEFAULT].
	Target string

	// IniFile is the path to the INI file. The file may be absent, in
	// which case only built-in defaults and overrides apply.
	IniFile string

	// Overrides holds values set on the command line. They take
	// precedence over every file layer.
	Overrides map[string]string
}

// Resolve merges the configuration layers for opts.Target, expands
// %(name)s references against the merged view and validates the
// result. The returned Config is ready to drive a provisioning run.
func Resolve(opts Options) (*Config, error) {
	if opts.Target == "" {
		return nil, configErrorf("a target CIMC address is required")
	}
	for key := range opts.Overrides {
		if !knownKeys[key] {
			return nil, configErrorf("unknown option %q", key)
		}
	}

	merged := builtinDefaults()
	fromFile := map[string]bool{}
	if opts.IniFile != "" {
		file, err := ini.LooseLoad(opts.IniFile)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", opts.IniFile, err)
		}
		mergeSection(merged, fromFile, file.Section(ini.DefaultSection))
		if file.HasSection(opts.Target) {
			mergeSection(merged, fromFile, file.Section(opts.Target))
		}
	}
	for key, value := range opts.Overrides {
		merged[key] = value
		fromFile[key] = true
	}

	if err := interpolate(merged); err != nil {
		return nil, err
	}

	cfg, err := buildConfig(opts.Target, merged)
	if err != nil {
		return nil, err
	}
	cfg.FabricNameProvided = fromFile[KeyFabricName]
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeSection copies the section's own keys over the accumulated view.
// Unknown keys are ignored so that unrelated sections, or an [archive]
// block pointing at transcript storage, can share the file.
func mergeSection(merged map[string]string, fromFile map[string]bool, section *ini.Section) {
	for _, key := range section.Keys() {
		if !knownKeys[key.Name()] {
			continue
		}
		merged[key.Name()] = key.Value()
		fromFile[key.Name()] = true
	}
}

var interpolationRe = regexp.MustCompile(`%\(([A-Za-z0-9_]+)\)s`)

// interpolate expands %(name)s references in every value against the
// final merged view, so overrides influence what defaults resolve to.
func interpolate(merged map[string]string) error {
	for key, value := range merged {
		expanded, err := expand(merged, value, 0)
		if err != nil {
			return configErrorf("%s: %s", key, err)
		}
		merged[key] = expanded
	}
	return nil
}

func expand(merged map[string]string, value string, depth int) (string, error) {
	if !strings.Contains(value, "%(") {
		return value, nil
	}
	if depth >= maxInterpolationDepth {
		return "", fmt.Errorf("interpolation nested more than %d levels deep", maxInterpolationDepth)
	}
	var expandErr error
	out := interpolationRe.ReplaceAllStringFunc(value, func(ref string) string {
		if expandErr != nil {
			return ref
		}
		name := interpolationRe.FindStringSubmatch(ref)[1]
		referenced, ok := merged[name]
		if !ok {
			expandErr = fmt.Errorf("reference to undefined option %q", name)
			return ref
		}
		expanded, err := expand(merged, referenced, depth+1)
		if err != nil {
			expandErr = err
			return ref
		}
		return expanded
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// buildConfig converts the merged string view into typed fields.
// Validation of ranges and formats happens separately in Validate.
func buildConfig(target string, merged map[string]string) (*Config, error) {
	cfg := &Config{
		Target:            target,
		CIMCUsername:      merged[KeyCIMCUsername],
		CIMCPassword:      merged[KeyCIMCPassword],
		FabricName:        merged[KeyFabricName],
		ControllerName:    merged[KeyControllerName],
		TEPAddressPool:    merged[KeyTEPAddressPool],
		BDMCAddresses:     merged[KeyBDMCAddresses],
		OOBIPAddress:      merged[KeyOOBIPAddress],
		OOBDefaultGateway: merged[KeyOOBDefaultGateway],
		IntSpeed:          merged[KeyIntSpeed],
		StrongPasswords:   merged[KeyStrongPasswords],
		APICAdminPassword: merged[KeyAPICAdminPassword],
		Completion:        CompletionMode(merged[KeyCompletion]),
	}

	var err error
	if cfg.ControllerNumber, err = parseInt(merged, KeyControllerNumber); err != nil {
		return nil, err
	}
	if cfg.NumberOfControllers, err = parseInt(merged, KeyNumberOfControllers); err != nil {
		return nil, err
	}
	if cfg.InfraVLANID, err = parseInt(merged, KeyInfraVLANID); err != nil {
		return nil, err
	}
	simulator, err := parseBool(merged, KeySimulator)
	if err != nil {
		return nil, err
	}
	if simulator {
		return nil, configErrorf("simulator mode is not supported")
	}
	if cfg.PowerCycleRecovery, err = parseBool(merged, KeyPowerCycleRecovery); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseInt(merged map[string]string, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(merged[key]))
	if err != nil {
		return 0, configErrorf("%s: %q is not a valid integer", key, merged[key])
	}
	return n, nil
}

func parseBool(merged map[string]string, key string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(merged[key]))
	if err != nil {
		return false, configErrorf("%s: %q is not a valid boolean", key, merged[key])
	}
	return b, nil
}
