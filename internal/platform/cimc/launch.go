package cimc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datacenter/wiper/internal/expect"
	"github.com/datacenter/wiper/internal/retry"
)

const connectHostCmd = "connect host"

// Prompts and messages of the C-series CIMC CLI. The scope prompts
// carry a "*" while uncommitted changes are pending, so the scope
// pattern accepts both forms.
var (
	promptCIMC    = expect.MustPattern("cimc-prompt", `C220[^\n]*# `)
	promptSol     = expect.MustPattern("sol-scope", `/sol \*?# `)
	promptChassis = expect.MustPattern("chassis-scope", `/chassis \*?# `)

	solConfigured = expect.MustPattern("sol-configured", `yes\s+115200`)
	solBanner     = expect.MustPattern("sol-banner", `CISCO Serial Over LAN:`)
	solBusy       = expect.MustPattern("sol-busy", `(?i)(another SOL session|SOL session (is )?already active)`)

	powerCycleConfirm = expect.MustPattern("power-cycle-confirm", `Do you want to continue\?\[y\|N\]`)
)

// Launch attaches the host's serial console. It confirms the CIMC
// prompt on both shells, makes sure Serial over LAN is enabled at the
// speed the host uses, then issues "connect host" on the console
// shell. If an earlier session still holds the SoL channel, it is
// terminated and the attach retried exactly once.
func (c *Console) Launch(ctx context.Context) error {
	if _, err := c.ControlExpect(ctx, c.timeouts.Control, promptCIMC); err != nil {
		return c.launchErr(fmt.Errorf("management prompt never appeared: %w", err))
	}
	if err := c.EnsureSerialOverLAN(ctx); err != nil {
		return c.launchErr(err)
	}

	if _, err := c.Expect(ctx, c.timeouts.Control, promptCIMC); err != nil {
		return c.launchErr(fmt.Errorf("console shell prompt never appeared: %w", err))
	}
	if err := c.SendLine(connectHostCmd); err != nil {
		return c.launchErr(err)
	}

	match, err := c.Expect(ctx, c.timeouts.Launch, solBanner, solBusy)
	if err != nil {
		return c.launchErr(err)
	}
	if match.Is("sol-busy") {
		c.log.Warn("stale serial over lan session detected, terminating and retrying once")
		if err := c.terminateStaleSession(ctx); err != nil {
			return c.launchErr(fmt.Errorf("terminating stale session: %w", err))
		}
		if _, err := c.Expect(ctx, c.timeouts.Control, promptCIMC); err != nil {
			return c.launchErr(fmt.Errorf("console shell prompt never returned: %w", err))
		}
		if err := c.SendLine(connectHostCmd); err != nil {
			return c.launchErr(err)
		}
		if _, err := c.Expect(ctx, c.timeouts.Launch, solBanner); err != nil {
			return c.launchErr(fmt.Errorf("console still unavailable after terminating stale session: %w", err))
		}
	}

	// Wake whatever is on the other end so it prints its prompt.
	if err := c.SendLine(""); err != nil {
		return c.launchErr(err)
	}
	c.log.Info("host console attached")
	return nil
}

func (c *Console) launchErr(err error) error {
	return &ConsoleLaunchError{Target: c.target, Err: err}
}

// EnsureSerialOverLAN checks the SoL configuration on the control
// shell and enables it at 115200 baud on com0 when it is off or set
// differently. Commit occasionally fails transiently right after the
// CIMC boots, so the whole check-and-configure sequence retries with
// backoff. A closed control stream cannot recover and aborts the loop.
func (c *Console) EnsureSerialOverLAN(ctx context.Context) error {
	return retry.WithExponentialBackoff(ctx, func() error {
		err := c.ensureSolOnce(ctx)
		var closed *expect.StreamClosedError
		if errors.As(err, &closed) {
			return retry.Fatal(err)
		}
		return err
	},
		retry.WithMaxRetries(2),
		retry.WithInitialDelay(time.Second),
		retry.WithMaxDelay(5*time.Second),
	)
}

func (c *Console) ensureSolOnce(ctx context.Context) error {
	configured, err := c.SolConfigured(ctx)
	if err != nil {
		return err
	}
	if configured {
		return nil
	}

	c.log.Info("serial over lan not configured, enabling")
	steps := []struct {
		cmd     string
		want    expect.Pattern
		timeout time.Duration
	}{
		{"scope sol", promptSol, c.timeouts.Control},
		{"set enabled yes", promptSol, c.timeouts.Control},
		{"set baud-rate 115200", promptSol, c.timeouts.Control},
		{"set comport com0", promptSol, c.timeouts.Control},
		{"commit", promptSol, c.timeouts.SolCommit},
		{"top", promptCIMC, c.timeouts.Control},
	}
	for _, step := range steps {
		if err := c.controlStep(ctx, step.cmd, step.timeout, step.want); err != nil {
			return err
		}
	}

	configured, err = c.SolConfigured(ctx)
	if err != nil {
		return err
	}
	if !configured {
		return fmt.Errorf("serial over lan config did not take effect")
	}
	return nil
}

// SolConfigured runs "show sol" and reports whether the enabled row
// already shows 115200 baud. It only reads; preflight checks use it
// to inspect a controller without touching its settings.
func (c *Console) SolConfigured(ctx context.Context) (bool, error) {
	if err := c.controlStep(ctx, "top", c.timeouts.Control, promptCIMC); err != nil {
		return false, err
	}
	if err := c.ControlSendLine("show sol"); err != nil {
		return false, err
	}
	match, err := c.ControlExpect(ctx, c.timeouts.Control, solConfigured, promptCIMC)
	if err != nil {
		return false, fmt.Errorf("show sol: %w", err)
	}
	if match.Is("sol-configured") {
		// Drain through the prompt that follows the table.
		if _, err := c.ControlExpect(ctx, c.timeouts.Control, promptCIMC); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// terminateStaleSession bounces Serial over LAN off and on, which
// drops whoever is still attached. The CIMC has no command to kick a
// single session.
func (c *Console) terminateStaleSession(ctx context.Context) error {
	steps := []struct {
		cmd     string
		want    expect.Pattern
		timeout time.Duration
	}{
		{"top", promptCIMC, c.timeouts.Control},
		{"scope sol", promptSol, c.timeouts.Control},
		{"set enabled no", promptSol, c.timeouts.Control},
		{"commit", promptSol, c.timeouts.SolCommit},
		{"set enabled yes", promptSol, c.timeouts.Control},
		{"commit", promptSol, c.timeouts.SolCommit},
		{"top", promptCIMC, c.timeouts.Control},
	}
	for _, step := range steps {
		if err := c.controlStep(ctx, step.cmd, step.timeout, step.want); err != nil {
			return err
		}
	}
	return nil
}

// PowerCycle cycles the chassis through the control shell. The serial
// attach survives the cycle, so the console shell streams the boot as
// soon as the host comes back.
func (c *Console) PowerCycle(ctx context.Context) error {
	c.log.Warn("power cycling chassis")
	steps := []struct {
		cmd     string
		want    expect.Pattern
		timeout time.Duration
	}{
		{"top", promptCIMC, c.timeouts.Control},
		{"scope chassis", promptChassis, c.timeouts.Control},
		{"power cycle", powerCycleConfirm, c.timeouts.Control},
		{"y", promptChassis, c.timeouts.Control},
		{"top", promptCIMC, c.timeouts.Control},
	}
	for _, step := range steps {
		if err := c.controlStep(ctx, step.cmd, step.timeout, step.want); err != nil {
			return fmt.Errorf("power cycle: %w", err)
		}
	}
	return nil
}

func (c *Console) controlStep(ctx context.Context, cmd string, timeout time.Duration, want expect.Pattern) error {
	if err := c.ControlSendLine(cmd); err != nil {
		return err
	}
	if _, err := c.ControlExpect(ctx, timeout, want); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}
