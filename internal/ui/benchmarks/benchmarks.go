// Package benchmarks provides timing estimates for provisioning stages.
package benchmarks

import (
	"strings"
	"time"

	"github.com/datacenter/wiper/internal/provision"
)

// DefaultTimings are median durations from lab runs (seconds).
var DefaultTimings = map[provision.Stage]int{
	provision.StageConnecting:       5,
	provision.StageAuthenticating:   5,
	provision.StageLaunchingConsole: 15,
	provision.StageWiping:           45,
	provision.StageAwaitingReboot:   240,
}

// PromptSeconds is the median time between a wizard prompt appearing
// and the next one, covering the answer and the wizard's own pace.
const PromptSeconds = 8

// StageOrder defines the fixed stage sequence for ETA calculation. The
// wizard prompts follow and are estimated per remaining prompt.
var StageOrder = []provision.Stage{
	provision.StageConnecting,
	provision.StageAuthenticating,
	provision.StageLaunchingConsole,
	provision.StageWiping,
	provision.StageAwaitingReboot,
}

// StageRecord is one observed stage of the current run.
type StageRecord struct {
	Stage   provision.Stage
	Started time.Time
	Ended   time.Time // zero while the stage is still running
}

// EstimateRemaining calculates the estimated time remaining based on
// the current stage, its elapsed time and the stages already observed.
func EstimateRemaining(current provision.Stage, elapsed time.Duration, answered, total int, history []StageRecord) time.Duration {
	return EstimateRemainingWithScale(current, elapsed, answered, total, history,
		PerformanceScale(current, elapsed, history))
}

// EstimateRemainingWithScale calculates ETA while applying a
// performance scale factor.
func EstimateRemainingWithScale(
	current provision.Stage,
	elapsed time.Duration,
	answered, total int,
	history []StageRecord,
	scale float64,
) time.Duration {
	if current == "" || current == provision.StageComplete {
		return 0
	}

	promptsLeft := total - answered
	if promptsLeft < 0 {
		promptsLeft = 0
	}
	promptRemaining := scaled(time.Duration(promptsLeft)*PromptSeconds*time.Second, scale)

	// Inside the wizard every fixed stage is behind us; the current
	// prompt is already counted as unanswered.
	if isPrompt(current) {
		return promptRemaining
	}

	currentIdx := -1
	for i, stage := range StageOrder {
		if stage == current {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return 0
	}

	var remaining time.Duration
	if expected, ok := DefaultTimings[current]; ok {
		expectedDur := scaled(time.Duration(expected)*time.Second, scale)
		if expectedDur > elapsed {
			remaining += expectedDur - elapsed
		}
	}

	completed := make(map[provision.Stage]bool)
	for _, rec := range history {
		if !rec.Ended.IsZero() {
			completed[rec.Stage] = true
		}
	}

	for i := currentIdx + 1; i < len(StageOrder); i++ {
		stage := StageOrder[i]
		if completed[stage] {
			continue
		}
		if expected, ok := DefaultTimings[stage]; ok {
			remaining += scaled(time.Duration(expected)*time.Second, scale)
		}
	}

	return remaining + promptRemaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected
// stage durations. Example: expected 10s, observed 15s => scale=1.5 and
// future ETAs are stretched by 50%.
func PerformanceScale(current provision.Stage, elapsed time.Duration, history []StageRecord) float64 {
	var expectedTotal time.Duration
	var actualTotal time.Duration

	for _, rec := range history {
		expectedSecs, ok := DefaultTimings[rec.Stage]
		if !ok || rec.Ended.IsZero() {
			continue
		}
		expectedTotal += time.Duration(expectedSecs) * time.Second
		actualTotal += rec.Ended.Sub(rec.Started)
	}

	// If the current stage is overrunning, fold it in immediately so
	// the ETA adapts quickly.
	if expectedSecs, ok := DefaultTimings[current]; ok && elapsed > 0 {
		expectedCurrent := time.Duration(expectedSecs) * time.Second
		if elapsed > expectedCurrent {
			expectedTotal += expectedCurrent
			actualTotal += elapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// TotalEstimate returns the total estimated run time for a wizard with
// the given prompt count.
func TotalEstimate(prompts int) time.Duration {
	var total time.Duration
	for _, stage := range StageOrder {
		if secs, ok := DefaultTimings[stage]; ok {
			total += time.Duration(secs) * time.Second
		}
	}
	if prompts > 0 {
		total += time.Duration(prompts) * PromptSeconds * time.Second
	}
	return total
}

func isPrompt(stage provision.Stage) bool {
	return strings.HasPrefix(string(stage), "PROMPT_")
}

func scaled(d time.Duration, scale float64) time.Duration {
	return time.Duration(float64(d) * scale)
}
