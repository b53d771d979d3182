package provision

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/datacenter/wiper/internal/logging"
)

// Observer receives structured events as the run progresses. The TUI,
// the log file and the journal all consume the same stream.
type Observer interface {
	Event(event Event)
}

// Event is one observable moment of a run.
type Event struct {
	Type      EventType
	Stage     Stage
	Step      string // wizard step name, when the event concerns one
	Pattern   string // name of the last matched pattern
	Answer    string // what was sent, masked for secret steps
	Message   string
	Attempt   int // resend attempt for prompt.repeated
	Elapsed   time.Duration
	Timestamp time.Time
}

// EventType classifies an Event.
type EventType string

const (
	// EventStageStarted indicates a stage has been entered.
	EventStageStarted EventType = "stage.started"
	// EventStageCompleted indicates a stage finished successfully.
	EventStageCompleted EventType = "stage.completed"
	// EventStageFailed indicates the run failed in this stage.
	EventStageFailed EventType = "stage.failed"

	// EventPromptAnswered indicates a wizard prompt was matched and
	// answered.
	EventPromptAnswered EventType = "prompt.answered"
	// EventPromptConfirmed indicates a confirmation prompt was
	// answered with the same value again.
	EventPromptConfirmed EventType = "prompt.confirmed"
	// EventPromptRepeated indicates the wizard re-presented a prompt
	// and the cached answer was resent.
	EventPromptRepeated EventType = "prompt.repeated"

	// EventConsoleRecovery indicates the console stayed silent and the
	// chassis is being power cycled.
	EventConsoleRecovery EventType = "console.recovery"
)

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) Event(Event) {}

// LogObserver writes events to the shared log.
type LogObserver struct{}

func (LogObserver) Event(event Event) {
	fields := logrus.Fields{"stage": string(event.Stage)}
	if event.Step != "" {
		fields["step"] = event.Step
	}
	if event.Pattern != "" {
		fields["pattern"] = event.Pattern
	}
	if event.Attempt > 0 {
		fields["attempt"] = event.Attempt
	}
	if event.Elapsed > 0 {
		fields["elapsed"] = event.Elapsed.Round(time.Millisecond).String()
	}

	entry := logging.WithFields(fields)
	switch event.Type {
	case EventStageFailed:
		entry.Error(string(event.Type) + " " + event.Message)
	case EventPromptRepeated, EventConsoleRecovery:
		entry.Warn(string(event.Type) + " " + event.Message)
	default:
		entry.Info(string(event.Type) + " " + event.Message)
	}
}

// MultiObserver fans events out to several observers in order.
func MultiObserver(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) Event(event Event) {
	for _, o := range m {
		o.Event(event)
	}
}
