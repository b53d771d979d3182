package config

import (
	"os"
	"time"
)

// Timeouts holds every deadline the provisioning run observes. Each
// field can be overridden through a WIPER_TIMEOUT_* environment
// variable for slow labs or fast simulated tests.
type Timeouts struct {
	// Dial bounds the TCP connection to the CIMC.
	Dial time.Duration
	// KeepAlive is the interval between SSH keepalive requests.
	KeepAlive time.Duration
	// Control bounds commands on the CIMC control channel.
	Control time.Duration
	// SolCommit bounds committing Serial over LAN settings, which the
	// controller applies noticeably slower than other scope commands.
	SolCommit time.Duration
	// Launch bounds attaching to the host console.
	Launch time.Duration
	// Login bounds the console login exchange.
	Login time.Duration
	// Step bounds each individual setup wizard prompt.
	Step time.Duration
	// Reboot bounds the wipe-triggered reboot until the console is
	// interactive again.
	Reboot time.Duration
	// PowerCycle bounds the recovery power cycle of the chassis.
	PowerCycle time.Duration
	// FinalLogin bounds the wait for the login banner after the wizard
	// accepts the configuration.
	FinalLogin time.Duration
}

// DefaultTimeouts returns the baseline deadlines, matching how long a
// physical controller takes for each stage.
func DefaultTimeouts() *Timeouts {
	return &Timeouts{
		Dial:       10 * time.Second,
		KeepAlive:  15 * time.Second,
		Control:    10 * time.Second,
		SolCommit:  30 * time.Second,
		Launch:     60 * time.Second,
		Login:      60 * time.Second,
		Step:       10 * time.Second,
		Reboot:     600 * time.Second,
		PowerCycle: 600 * time.Second,
		FinalLogin: 60 * time.Second,
	}
}

// LoadTimeouts returns the default deadlines with any WIPER_TIMEOUT_*
// environment overrides applied. Unparseable values fall back to the
// default silently, same as an unset variable.
func LoadTimeouts() *Timeouts {
	t := DefaultTimeouts()
	t.Dial = envDuration("WIPER_TIMEOUT_DIAL", t.Dial)
	t.KeepAlive = envDuration("WIPER_TIMEOUT_KEEPALIVE", t.KeepAlive)
	t.Control = envDuration("WIPER_TIMEOUT_CONTROL", t.Control)
	t.SolCommit = envDuration("WIPER_TIMEOUT_SOL_COMMIT", t.SolCommit)
	t.Launch = envDuration("WIPER_TIMEOUT_LAUNCH", t.Launch)
	t.Login = envDuration("WIPER_TIMEOUT_LOGIN", t.Login)
	t.Step = envDuration("WIPER_TIMEOUT_STEP", t.Step)
	t.Reboot = envDuration("WIPER_TIMEOUT_REBOOT", t.Reboot)
	t.PowerCycle = envDuration("WIPER_TIMEOUT_POWER_CYCLE", t.PowerCycle)
	t.FinalLogin = envDuration("WIPER_TIMEOUT_FINAL_LOGIN", t.FinalLogin)
	return t
}

func envDuration(name string, fallback time.Duration) time.Duration {
	value := os.Getenv(name)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
