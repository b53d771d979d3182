package provision

import "time"

// Outcome is the result of one provisioning run, successful or not.
// It carries everything the journal, the archive and the exit code
// need.
type Outcome struct {
	Target string

	// Stage is COMPLETE on success, otherwise the stage the run
	// stopped in.
	Stage Stage

	// Step names the wizard step in flight when the run failed. Empty
	// on success and when the failure happened outside the wizard.
	Step string

	// Answered lists the wizard steps answered during the final wizard
	// pass, in console order.
	Answered []string

	StartedAt time.Time
	Duration  time.Duration

	// Transcript is the sanitized console output, bounded to the most
	// recent megabyte.
	Transcript string

	Err error
}

// Succeeded reports whether the controller reached the completion
// milestone.
func (o *Outcome) Succeeded() bool {
	return o.Err == nil && o.Stage == StageComplete
}

// Failure builds the outcome for a run that failed before or without a
// console, such as a configuration that does not validate.
func Failure(target string, stage Stage, err error) *Outcome {
	return &Outcome{
		Target:    target,
		Stage:     stage,
		StartedAt: time.Now(),
		Err:       err,
	}
}
