// Package config resolves the provisioning configuration for a single
// CIMC target.
//
// Values are merged from three layers, lowest precedence first: built-in
// defaults, the [DEFAULT] section of the INI file, and the section named
// after the target address. Command-line overrides sit on top of all
// three. After merging, %(name)s references are expanded against the
// final view, so an override can change what an interpolated default
// resolves to.
package config
