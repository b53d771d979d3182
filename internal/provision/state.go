package provision

import "fmt"

// Stage names the phase a run is in. Failures carry the stage they
// happened in, so "the login step timed out" and "the CIMC refused the
// password" stay distinguishable in the journal.
type Stage string

const (
	StageConfiguring      Stage = "CONFIGURING"
	StageConnecting       Stage = "CONNECTING"
	StageAuthenticating   Stage = "AUTHENTICATING"
	StageLaunchingConsole Stage = "LAUNCHING_CONSOLE"
	StageWiping           Stage = "WIPING"
	StageAwaitingReboot   Stage = "AWAITING_REBOOT"
	StageComplete         Stage = "COMPLETE"
	StageFailed           Stage = "FAILED"
)

// PromptStage returns the stage for the n-th wizard prompt, counted
// from 1.
func PromptStage(n int) Stage {
	return Stage(fmt.Sprintf("PROMPT_%d", n))
}

// WizardState tracks the driver's position in the setup wizard.
type WizardState struct {
	// Cursor is the index of the next profile step that has not been
	// answered. It only moves forward: a step is considered done when
	// the console shows a later prompt.
	Cursor int

	// Repeats counts how many times the current prompt has come back
	// after being answered.
	Repeats int

	// Answered lists the names of the steps answered during the
	// current wizard pass, in console order.
	Answered []string

	// cache holds the answer sent for each step, so repeats are
	// answered with the identical value rather than re-derived.
	cache map[string]string
}

func (s *WizardState) remember(step string, answer string) {
	if s.cache == nil {
		s.cache = make(map[string]string)
	}
	s.cache[step] = answer
	s.Answered = append(s.Answered, step)
}

func (s *WizardState) cached(step string) string {
	return s.cache[step]
}
