package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/provision"
)

// RunFunc executes the provisioning run, reporting progress to the
// observer. It must honor ctx and always return an outcome.
type RunFunc func(ctx context.Context, observer provision.Observer) *provision.Outcome

// RunProvisionTUI wraps a provisioning run with a Bubble Tea dashboard.
// Quitting the dashboard cancels the run; the outcome of the run is
// returned either way so it can be journaled and archived.
func RunProvisionTUI(ctx context.Context, cfg *config.Config, profile *provision.Profile, runFn RunFunc) (*provision.Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewRunModel(cfg, profile)
	p := tea.NewProgram(m, tea.WithAltScreen())

	outcomeCh := make(chan *provision.Outcome, 1)
	go func() {
		outcome := runFn(ctx, &programObserver{program: p})
		outcomeCh <- outcome
		if outcome.Err != nil {
			p.Send(ErrMsg{Err: outcome.Err})
		} else {
			p.Send(DoneMsg{})
		}
	}()

	_, runErr := p.Run()

	// Unwind the run if the operator quit before it finished.
	cancel()
	outcome := <-outcomeCh

	if runErr != nil {
		return outcome, fmt.Errorf("TUI error: %w", runErr)
	}
	return outcome, nil
}

// programObserver translates run events into Bubble Tea messages.
type programObserver struct {
	program *tea.Program
}

func (o *programObserver) Event(event provision.Event) {
	switch event.Type {
	case provision.EventStageStarted:
		o.program.Send(StageMsg{Stage: event.Stage})
	case provision.EventStageCompleted:
		o.program.Send(StageMsg{Stage: event.Stage, Done: true})
	case provision.EventStageFailed:
		o.program.Send(StageMsg{Stage: event.Stage, Failed: true})
	case provision.EventPromptAnswered:
		o.program.Send(StepMsg{Step: event.Step, Answer: event.Answer})
	case provision.EventPromptConfirmed:
		o.program.Send(StepMsg{Step: event.Step, Answer: event.Answer, Confirmed: true})
	case provision.EventPromptRepeated:
		o.program.Send(StepMsg{Step: event.Step, Attempt: event.Attempt})
	case provision.EventConsoleRecovery:
		o.program.Send(RecoveryMsg{Message: event.Message})
	}
}
