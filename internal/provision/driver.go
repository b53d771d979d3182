package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/expect"
	"github.com/datacenter/wiper/internal/logging"
)

// maxAnswerResends bounds how often the cached answer is resent when
// the wizard re-presents a prompt. The repeat after the last resend
// fails the run.
const maxAnswerResends = 2

const (
	ctrlD       = "\x04"
	wipeAck     = "Y"
	acceptEdit  = "y"
	declineEdit = "n"
)

// Session is the console the driver speaks through. cimc.Console
// implements it; tests substitute a scripted one.
type Session interface {
	Launch(ctx context.Context) error
	PowerCycle(ctx context.Context) error
	Expect(ctx context.Context, timeout time.Duration, patterns ...expect.Pattern) (expect.Match, error)
	Send(text string) error
	SendLine(text string) error
	Flush()
	Transcript() string
}

// Driver is the single-threaded state machine that takes an attached
// console through wipe, reboot and the setup wizard.
type Driver struct {
	cfg      *config.Config
	profile  *Profile
	timeouts *config.Timeouts
	session  Session
	observer Observer
	log      *logrus.Entry

	stage       Stage
	stageStart  time.Time
	lastPattern string
	step        string
	state       WizardState
	answers     map[string]string
}

// NewDriver validates the inputs and prepares a driver. A nil profile
// selects the built-in APIC catalogue; a nil observer discards events.
func NewDriver(cfg *config.Config, profile *Profile, timeouts *config.Timeouts, session Session, observer Observer) (*Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	if profile == nil {
		profile = APICProfile()
	}
	if err := profile.Compile(); err != nil {
		return nil, err
	}
	if timeouts == nil {
		timeouts = config.DefaultTimeouts()
	}
	if observer == nil {
		observer = NopObserver{}
	}

	answers := cfg.Answers()
	for _, step := range profile.Steps {
		if _, ok := answers[step.AnswerKey]; !ok {
			return nil, fmt.Errorf("profile step %s answers unknown option %q", step.Name, step.AnswerKey)
		}
	}

	return &Driver{
		cfg:      cfg,
		profile:  profile,
		timeouts: timeouts,
		session:  session,
		observer: observer,
		log:      logging.WithField("target", cfg.Target),
		answers:  answers,
	}, nil
}

// Stage returns the stage the driver is in, which after a failure is
// the stage the failure happened in.
func (d *Driver) Stage() Stage {
	if d.stage == "" {
		return StageLaunchingConsole
	}
	return d.stage
}

// State returns a copy of the wizard position.
func (d *Driver) State() WizardState { return d.state }

// CurrentStep names the wizard step most recently in flight, or ""
// when the run never reached the wizard.
func (d *Driver) CurrentStep() string { return d.step }

// Run attaches the console, classifies what is on the other end and
// drives it to a configured controller. Cancellation of ctx unwinds
// through whatever wait is active.
func (d *Driver) Run(ctx context.Context) error {
	if !d.cfg.FabricNameProvided {
		d.log.Warn("fabric_name not set in configuration, using the built-in default")
	}
	match, err := d.attachConsole(ctx)
	if err != nil {
		return d.fail(err)
	}
	if err := d.dispatch(ctx, match); err != nil {
		return d.fail(err)
	}
	return nil
}

// attachConsole launches the console and waits for anything
// recognizable. A silent console usually means the controller hangs in
// a boot state only a power cycle resolves.
func (d *Driver) attachConsole(ctx context.Context) (expect.Match, error) {
	d.enterStage(StageLaunchingConsole)
	if err := d.session.Launch(ctx); err != nil {
		return expect.Match{}, err
	}

	patterns := d.classifyPatterns()
	match, err := d.session.Expect(ctx, d.timeouts.Launch, patterns...)
	if err != nil {
		var timeoutErr *expect.TimeoutError
		if !errors.As(err, &timeoutErr) || !d.cfg.PowerCycleRecovery {
			return expect.Match{}, err
		}
		d.observe(Event{Type: EventConsoleRecovery, Message: "console silent, power cycling the chassis"})
		if err := d.session.PowerCycle(ctx); err != nil {
			return expect.Match{}, err
		}
		match, err = d.session.Expect(ctx, d.timeouts.PowerCycle, patterns...)
		if err != nil {
			return expect.Match{}, fmt.Errorf("console still silent after power cycle: %w", err)
		}
	}
	d.lastPattern = match.Pattern.Name
	return match, nil
}

// classifyPatterns is everything the console may show when first
// attached. Wizard prompts come first so they take priority over the
// generic login and password fragments.
func (d *Driver) classifyPatterns() []expect.Pattern {
	c := d.profile.compiled
	patterns := make([]expect.Pattern, 0, len(c.steps)+6)
	for _, s := range c.steps {
		patterns = append(patterns, s.pattern)
	}
	return append(patterns, c.editConfig, c.wipeConfirm, c.pressAnyKey, c.shell, c.password, c.login)
}

// dispatch routes the run based on the state the console was found in.
func (d *Driver) dispatch(ctx context.Context, match expect.Match) error {
	switch {
	case match.Is(patShell):
		// A stale rescue shell from an interrupted run.
		d.enterStage(StageWiping)
		return d.wipeFromShell(ctx)

	case match.Is(patPassword):
		// A half-finished login; back out to the login prompt.
		d.enterStage(StageWiping)
		if err := d.session.Send(ctrlD); err != nil {
			return err
		}
		if _, err := d.session.Expect(ctx, d.timeouts.Login, d.profile.compiled.login); err != nil {
			return fmt.Errorf("login prompt after aborting stale login: %w", err)
		}
		return d.loginAndWipe(ctx)

	case match.Is(patLogin):
		d.enterStage(StageWiping)
		return d.loginAndWipe(ctx)

	case match.Is(patWipeConfirm):
		// An interrupted run stopped at the wipe question.
		d.enterStage(StageWiping)
		return d.confirmWipe(ctx)

	case match.Is(patPressAnyKey):
		// Freshly wiped and waiting for a keypress.
		if err := d.session.SendLine(""); err != nil {
			return err
		}
		return d.runWizard(ctx, nil)

	case match.Is(patEditConfig):
		// A completed wizard waits at its final question. Edit it so
		// the configured answers replace whatever was entered before.
		d.observe(Event{Type: EventPromptAnswered, Step: patEditConfig, Answer: acceptEdit, Message: "editing existing configuration"})
		if err := d.session.SendLine(acceptEdit); err != nil {
			return err
		}
		return d.runWizard(ctx, nil)

	default:
		// The wizard is mid-flight; join at the prompt it is showing.
		return d.runWizard(ctx, &match)
	}
}

// loginAndWipe logs in as the rescue user and erases the setup data.
// A factory-fresh controller drops the rescue user straight into a
// shell; a previously configured one asks for the admin password.
func (d *Driver) loginAndWipe(ctx context.Context) error {
	c := d.profile.compiled
	if err := d.session.SendLine(d.profile.RescueUser); err != nil {
		return err
	}
	match, err := d.session.Expect(ctx, d.timeouts.Login, c.shell, c.password)
	if err != nil {
		return fmt.Errorf("rescue login: %w", err)
	}
	if match.Is(patPassword) {
		password := d.answers[config.KeyAPICAdminPassword]
		if password == "" {
			return &config.ConfigurationError{Reason: "the controller asks for the rescue-user password; set apic_admin_password"}
		}
		if err := d.session.SendLine(password); err != nil {
			return err
		}
		if _, err := d.session.Expect(ctx, d.timeouts.Login, c.shell); err != nil {
			return fmt.Errorf("rescue login: %w", err)
		}
	}
	return d.wipeFromShell(ctx)
}

func (d *Driver) wipeFromShell(ctx context.Context) error {
	if err := d.session.SendLine(d.profile.WipeCommand); err != nil {
		return err
	}
	if _, err := d.session.Expect(ctx, d.timeouts.Step, d.profile.compiled.wipeConfirm); err != nil {
		return fmt.Errorf("%s: %w", d.profile.WipeCommand, err)
	}
	return d.confirmWipe(ctx)
}

// confirmWipe acknowledges the reboot question and rides out the
// reboot until the post-wipe splash asks for a keypress.
func (d *Driver) confirmWipe(ctx context.Context) error {
	if err := d.session.SendLine(wipeAck); err != nil {
		return err
	}
	d.enterStage(StageAwaitingReboot)
	if _, err := d.session.Expect(ctx, d.timeouts.Reboot, d.profile.compiled.pressAnyKey); err != nil {
		return fmt.Errorf("waiting for reboot: %w", err)
	}
	if err := d.session.SendLine(""); err != nil {
		return err
	}
	return d.runWizard(ctx, nil)
}

// stepRun is the driver's grip on the wizard step answered most
// recently: its patterns for repeat detection, the cached answer, and
// the exchanges kept for error reports.
type stepRun struct {
	step     Step
	pattern  expect.Pattern
	confirm  expect.Pattern
	answer   string
	confirms int
	history  []Exchange
}

func (r *stepRun) masked() string {
	if r.step.Secret {
		return "********"
	}
	return r.answer
}

func (r *stepRun) record(prompt string) {
	r.history = append(r.history, Exchange{Prompt: strings.TrimSpace(prompt), Answer: r.masked()})
	if len(r.history) > 2 {
		r.history = r.history[len(r.history)-2:]
	}
}

// runWizard answers prompts until the wizard asks its final edit
// question. initial carries a prompt already matched during
// classification when the run joins a wizard mid-flight.
func (d *Driver) runWizard(ctx context.Context, initial *expect.Match) error {
	d.state = WizardState{}
	joined := false
	var current *stepRun
	if initial != nil {
		run, err := d.answerStep(*initial)
		if err != nil {
			return err
		}
		current = run
		// Joining past the first prompt means the earlier answers
		// belong to whoever ran the wizard before the interruption.
		joined = d.state.Cursor > 1
	}

	for {
		match, err := d.session.Expect(ctx, d.timeouts.Step, d.wizardCandidates(current)...)
		if err != nil {
			return err
		}
		d.lastPattern = match.Pattern.Name

		switch {
		case current != nil && !current.confirm.Zero() && match.Is(current.confirm.Name):
			if err := d.answerConfirm(current, match); err != nil {
				return err
			}

		case current != nil && match.Is(current.pattern.Name):
			if err := d.answerRepeat(current, match); err != nil {
				return err
			}

		case match.Is(patEditConfig):
			if joined {
				if err := d.restartWizard(); err != nil {
					return err
				}
				joined = false
				current = nil
				continue
			}
			return d.finish(ctx)

		default:
			run, err := d.answerStep(match)
			if err != nil {
				return err
			}
			current = run
		}
	}
}

// wizardCandidates is what the console may legally show next: the
// current step's confirmation and repeat, every remaining step, and
// the final edit question. Earlier steps are absent on purpose; the
// cursor only moves forward.
func (d *Driver) wizardCandidates(current *stepRun) []expect.Pattern {
	c := d.profile.compiled
	patterns := make([]expect.Pattern, 0, len(c.steps)+3)
	if current != nil {
		if !current.confirm.Zero() {
			patterns = append(patterns, current.confirm)
		}
		patterns = append(patterns, current.pattern)
	}
	for _, s := range c.steps[d.state.Cursor:] {
		patterns = append(patterns, s.pattern)
	}
	return append(patterns, c.editConfig)
}

// answerStep sends the configured answer for the step whose prompt
// just matched and advances the cursor past it. Steps between the old
// cursor and the matched prompt were skipped by the wizard itself.
func (d *Driver) answerStep(match expect.Match) (*stepRun, error) {
	idx := d.profile.stepIndex(match.Pattern.Name)
	if idx < 0 {
		return nil, fmt.Errorf("unexpected prompt %q", match.Pattern.Name)
	}
	step := d.profile.Steps[idx]
	d.step = step.Name
	answer := d.answers[step.AnswerKey]
	if answer == "" {
		return nil, &config.ConfigurationError{Reason: fmt.Sprintf("the wizard asked for %s but no value is configured", step.Name)}
	}

	d.lastPattern = match.Pattern.Name
	d.enterStage(PromptStage(idx + 1))
	if err := d.session.SendLine(answer); err != nil {
		return nil, err
	}
	d.state.Cursor = idx + 1
	d.state.Repeats = 0
	d.state.remember(step.Name, answer)

	compiled := d.profile.compiled.steps[idx]
	run := &stepRun{step: step, pattern: compiled.pattern, confirm: compiled.confirm, answer: answer}
	d.observe(Event{Type: EventPromptAnswered, Step: step.Name, Answer: run.masked(), Message: "prompt answered"})
	return run, nil
}

// answerConfirm handles the re-entry prompt that follows some answers.
// The first confirmation is part of the protocol; further ones count
// against the repeat bound like any other rejection.
func (d *Driver) answerConfirm(current *stepRun, match expect.Match) error {
	current.confirms++
	if current.confirms > 1 {
		return d.answerRepeat(current, match)
	}
	d.observe(Event{Type: EventPromptConfirmed, Step: current.step.Name, Answer: current.masked(), Message: "confirmation prompt answered"})
	return d.session.SendLine(current.answer)
}

// answerRepeat resends the cached answer, verbatim, when the wizard
// re-presents a prompt. The bound turns an answer the wizard will
// never accept into a prompt failure instead of an endless loop.
func (d *Driver) answerRepeat(current *stepRun, match expect.Match) error {
	d.state.Repeats++
	current.record(match.Text)
	if d.state.Repeats > maxAnswerResends {
		return &RetryBoundExceededError{
			Step:      current.step.Name,
			Repeats:   d.state.Repeats,
			Exchanges: current.history,
		}
	}
	d.observe(Event{
		Type:    EventPromptRepeated,
		Step:    current.step.Name,
		Answer:  current.masked(),
		Attempt: d.state.Repeats,
		Message: "prompt repeated, resending cached answer",
	})
	return d.session.SendLine(d.state.cached(current.step.Name))
}

// restartWizard accepts the edit question so the wizard starts over at
// its first prompt. A run that joined a wizard mid-flight only
// answered the prompts after the join point; the second pass replaces
// whatever the interrupted session typed before it.
func (d *Driver) restartWizard() error {
	d.observe(Event{Type: EventPromptAnswered, Step: patEditConfig, Answer: acceptEdit, Message: "rerunning wizard to replace inherited answers"})
	if err := d.session.SendLine(acceptEdit); err != nil {
		return err
	}
	d.state = WizardState{}
	return nil
}

// finish declines the edit question so the configuration applies, then
// waits out the milestone the completion mode asks for.
func (d *Driver) finish(ctx context.Context) error {
	d.observe(Event{Type: EventPromptAnswered, Step: patEditConfig, Answer: declineEdit, Message: "configuration accepted"})
	if err := d.session.SendLine(declineEdit); err != nil {
		return err
	}
	if d.cfg.Completion != config.CompletionFinalAck {
		if _, err := d.session.Expect(ctx, d.timeouts.FinalLogin, d.profile.compiled.banner); err != nil {
			return fmt.Errorf("waiting for login banner: %w", err)
		}
	}
	d.enterStage(StageComplete)
	return nil
}

// enterStage closes out the current stage and starts the next.
func (d *Driver) enterStage(stage Stage) {
	if d.stage != "" {
		d.observe(Event{Type: EventStageCompleted, Stage: d.stage, Elapsed: time.Since(d.stageStart)})
	}
	d.stage = stage
	d.stageStart = time.Now()
	d.observe(Event{Type: EventStageStarted, Stage: stage})
}

func (d *Driver) fail(err error) error {
	d.observe(Event{Type: EventStageFailed, Message: err.Error()})
	return err
}

// observe fills in the ambient fields before publishing.
func (d *Driver) observe(e Event) {
	if e.Stage == "" {
		e.Stage = d.Stage()
	}
	if e.Pattern == "" {
		e.Pattern = d.lastPattern
	}
	if e.Elapsed == 0 && !d.stageStart.IsZero() {
		e.Elapsed = time.Since(d.stageStart)
	}
	e.Timestamp = time.Now()
	d.observer.Event(e)
}
