// Package tui provides a Bubble Tea-based terminal UI for console
// provisioning runs.
package tui

import "github.com/datacenter/wiper/internal/provision"

// StageMsg reports a stage transition of the run.
type StageMsg struct {
	Stage  provision.Stage
	Done   bool
	Failed bool
}

// StepMsg reports progress on one wizard prompt. Answers arrive
// already masked for secret steps.
type StepMsg struct {
	Step      string
	Answer    string
	Attempt   int // resend attempt when the prompt came back
	Confirmed bool
}

// RecoveryMsg reports a power cycle after a silent console.
type RecoveryMsg struct{ Message string }

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the run is complete.
type DoneMsg struct{}
