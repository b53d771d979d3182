package config

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a configuration that cannot produce a
// provisioning run: required options missing after all layers merged,
// or a value that fails validation.
type ConfigurationError struct {
	// Missing lists every required option absent from the merged
	// configuration, so the operator can fix the file in one pass.
	Missing []string

	// Reason describes a malformed or unsupported value. Empty when
	// Missing is populated.
	Reason string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required options: %s", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
