package provision

import (
	"context"
	"time"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/platform/cimc"
)

// Connector is the management-channel lifecycle the runner walks
// through. The real implementation wraps cimc.Client; tests supply a
// scripted one.
type Connector interface {
	Connect(ctx context.Context) error
	Authenticate(ctx context.Context) error
	OpenConsole(ctx context.Context) (Session, error)
	Close()
}

// Options tunes a run. Zero values select the built-in profile, the
// environment-derived timeouts, the log observer and the real CIMC.
type Options struct {
	Profile   *Profile
	Timeouts  *config.Timeouts
	Observer  Observer
	Connector Connector
}

type cimcConnector struct {
	client *cimc.Client
}

func (c *cimcConnector) Connect(ctx context.Context) error      { return c.client.Connect(ctx) }
func (c *cimcConnector) Authenticate(ctx context.Context) error { return c.client.Authenticate(ctx) }
func (c *cimcConnector) Close()                                 { c.client.Close() }

func (c *cimcConnector) OpenConsole(ctx context.Context) (Session, error) {
	console, err := c.client.OpenConsole(ctx)
	if err != nil {
		return nil, err
	}
	return console, nil
}

// Run provisions one controller end to end and always returns an
// Outcome; the error of a failed run is inside it. The management
// channel is released exactly once on every path out.
func Run(ctx context.Context, cfg *config.Config, opts Options) *Outcome {
	started := time.Now()
	outcome := &Outcome{Target: cfg.Target, StartedAt: started}

	// A config that cannot provision fails here, before anything is
	// dialed.
	if err := cfg.Validate(); err != nil {
		return finish(outcome, StageConfiguring, err)
	}

	observer := opts.Observer
	if observer == nil {
		observer = LogObserver{}
	}
	timeouts := opts.Timeouts
	if timeouts == nil {
		timeouts = config.LoadTimeouts()
	}
	profile := opts.Profile
	if profile == nil {
		profile = APICProfile()
	}

	connector := opts.Connector
	if connector == nil {
		client, err := cimc.NewClient(&cimc.Config{
			Target:   cfg.Target,
			Username: cfg.CIMCUsername,
			Password: cfg.CIMCPassword,
			Timeouts: timeouts,
		})
		if err != nil {
			return finish(outcome, StageConfiguring, err)
		}
		connector = &cimcConnector{client: client}
	}
	defer connector.Close()

	step := func(stage Stage, fn func(context.Context) error) error {
		start := time.Now()
		observer.Event(Event{Type: EventStageStarted, Stage: stage, Timestamp: start})
		if err := fn(ctx); err != nil {
			observer.Event(Event{Type: EventStageFailed, Stage: stage, Elapsed: time.Since(start), Message: err.Error(), Timestamp: time.Now()})
			return err
		}
		observer.Event(Event{Type: EventStageCompleted, Stage: stage, Elapsed: time.Since(start), Timestamp: time.Now()})
		return nil
	}

	if err := step(StageConnecting, connector.Connect); err != nil {
		return finish(outcome, StageConnecting, err)
	}
	if err := step(StageAuthenticating, connector.Authenticate); err != nil {
		return finish(outcome, StageAuthenticating, err)
	}

	session, err := connector.OpenConsole(ctx)
	if err != nil {
		observer.Event(Event{Type: EventStageFailed, Stage: StageLaunchingConsole, Message: err.Error(), Timestamp: time.Now()})
		return finish(outcome, StageLaunchingConsole, err)
	}

	driver, err := NewDriver(cfg, profile, timeouts, session, observer)
	if err != nil {
		return finish(outcome, StageConfiguring, err)
	}

	runErr := driver.Run(ctx)
	outcome.Answered = driver.State().Answered
	outcome.Transcript = session.Transcript()
	if runErr != nil {
		outcome.Step = driver.CurrentStep()
		return finish(outcome, driver.Stage(), runErr)
	}
	outcome.Stage = StageComplete
	outcome.Duration = time.Since(started)
	return outcome
}

func finish(outcome *Outcome, stage Stage, err error) *Outcome {
	outcome.Stage = stage
	outcome.Err = err
	outcome.Duration = time.Since(outcome.StartedAt)
	return outcome
}
