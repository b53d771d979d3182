package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errTargetRequired   = errors.New("target hostname or IP is required")
	errValueRequired    = errors.New("a value is required")
	errPasswordRequired = errors.New("password is required")
	errPasswordMismatch = errors.New("passwords do not match")
	errCIDRInvalid      = errors.New("invalid CIDR (expected: x.x.x.x/nn)")
	errIPInvalid        = errors.New("invalid IP address")
	errVLANInvalid      = errors.New("VLAN ID must be a number between 1 and 4094")
)
