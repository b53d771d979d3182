package provision_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/consoletest"
	"github.com/datacenter/wiper/internal/provision"
)

func runnerOptions(connector provision.Connector, observer provision.Observer) provision.Options {
	return provision.Options{
		Timeouts:  consoletest.FastTimeouts(),
		Observer:  observer,
		Connector: connector,
	}
}

func TestRun_ProvisionsEndToEnd(t *testing.T) {
	cfg := testConfig(1)
	observer := &recordingObserver{}
	session := consoletest.NewSession(t).
		OnLaunch(promptText["fabric_name"]).
		Script(wizardScript(cfg, "fabric_name", bannerText)...)
	connector := &consoletest.Connector{Session: session}

	outcome := provision.Run(consoletest.TestContext(t), cfg, runnerOptions(connector, observer))

	require.NoError(t, outcome.Err)
	assert.True(t, outcome.Succeeded())
	assert.Equal(t, provision.StageComplete, outcome.Stage)
	assert.Equal(t, cfg.Target, outcome.Target)
	assert.Equal(t, stepNames(askedSteps(1)), outcome.Answered)
	assert.Contains(t, outcome.Transcript, "Enter the fabric name")
	assert.False(t, outcome.StartedAt.IsZero())
	assert.Positive(t, outcome.Duration)
	assert.Equal(t, 1, connector.Closes)

	started := observer.stages(provision.EventStageStarted)
	assert.Contains(t, started, provision.StageConnecting)
	assert.Contains(t, started, provision.StageAuthenticating)
}

func TestRun_ConnectFailure(t *testing.T) {
	connectErr := errors.New("dial tcp 192.0.2.10:22: connection refused")
	observer := &recordingObserver{}
	connector := &consoletest.Connector{ConnectErr: connectErr}

	outcome := provision.Run(consoletest.TestContext(t), testConfig(1), runnerOptions(connector, observer))

	require.ErrorIs(t, outcome.Err, connectErr)
	assert.False(t, outcome.Succeeded())
	assert.Equal(t, provision.StageConnecting, outcome.Stage)
	assert.Equal(t, 1, connector.Closes)

	failed := observer.ofType(provision.EventStageFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, provision.StageConnecting, failed[0].Stage)
}

func TestRun_AuthenticationFailure(t *testing.T) {
	authErr := errors.New("ssh: unable to authenticate")
	connector := &consoletest.Connector{AuthErr: authErr}

	outcome := provision.Run(consoletest.TestContext(t), testConfig(1), runnerOptions(connector, &recordingObserver{}))

	require.ErrorIs(t, outcome.Err, authErr)
	assert.Equal(t, provision.StageAuthenticating, outcome.Stage)
	assert.Equal(t, 1, connector.Closes)
}

func TestRun_ConsoleLaunchFailure(t *testing.T) {
	openErr := errors.New("pty request rejected")
	connector := &consoletest.Connector{OpenErr: openErr}

	outcome := provision.Run(consoletest.TestContext(t), testConfig(1), runnerOptions(connector, &recordingObserver{}))

	require.ErrorIs(t, outcome.Err, openErr)
	assert.Equal(t, provision.StageLaunchingConsole, outcome.Stage)
	assert.Equal(t, 1, connector.Closes)
}

func TestRun_FailedPromptNamesTheStep(t *testing.T) {
	cfg := testConfig(1)
	answer := cfg.Answers()[config.KeyFabricName]
	session := consoletest.NewSession(t).
		OnLaunch(promptText["fabric_name"]).
		Script(
			consoletest.Exchange{Send: answer, Reply: promptText["fabric_name"]},
			consoletest.Exchange{Send: answer, Reply: promptText["fabric_name"]},
			consoletest.Exchange{Send: answer, Reply: promptText["fabric_name"]},
		)
	connector := &consoletest.Connector{Session: session}

	outcome := provision.Run(consoletest.TestContext(t), cfg, runnerOptions(connector, &recordingObserver{}))

	var boundErr *provision.RetryBoundExceededError
	require.ErrorAs(t, outcome.Err, &boundErr)
	assert.Equal(t, provision.PromptStage(1), outcome.Stage)
	assert.Equal(t, "fabric_name", outcome.Step)
	assert.Equal(t, 1, connector.Closes)
}

func TestRun_InvalidProfile(t *testing.T) {
	session := consoletest.NewSession(t)
	connector := &consoletest.Connector{Session: session}

	profile := provision.APICProfile()
	profile.Steps[0].AnswerKey = "no_such_option"
	opts := runnerOptions(connector, &recordingObserver{})
	opts.Profile = profile

	outcome := provision.Run(consoletest.TestContext(t), testConfig(1), opts)

	require.Error(t, outcome.Err)
	assert.Equal(t, provision.StageConfiguring, outcome.Stage)
	assert.Equal(t, 1, connector.Closes)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig(1)
	cfg.CIMCPassword = ""
	connector := &consoletest.Connector{ConnectErr: errors.New("should not be dialed")}

	outcome := provision.Run(consoletest.TestContext(t), cfg, runnerOptions(connector, &recordingObserver{}))

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, outcome.Err, &cfgErr)
	assert.Contains(t, cfgErr.Missing, "cimc_password")
	assert.Equal(t, provision.StageConfiguring, outcome.Stage)
	assert.Zero(t, connector.Closes)
}

func TestRun_InvalidTarget(t *testing.T) {
	cfg := testConfig(1)
	cfg.Target = ""

	// No connector is injected, so the runner builds the real CIMC
	// client, which rejects the empty target before touching the
	// network.
	outcome := provision.Run(consoletest.TestContext(t), cfg, provision.Options{Observer: &recordingObserver{}})

	require.Error(t, outcome.Err)
	assert.ErrorContains(t, outcome.Err, "target")
	assert.Equal(t, provision.StageConfiguring, outcome.Stage)
}

func TestRun_AttributesWizardFailure(t *testing.T) {
	cfg := testConfig(1)
	session := consoletest.NewSession(t).
		OnLaunch(promptText["int_speed"]).
		Script(
			consoletest.Exchange{Send: "auto", Reply: promptText["int_speed"]},
			consoletest.Exchange{Send: "auto", Reply: promptText["int_speed"]},
			consoletest.Exchange{Send: "auto", Reply: promptText["int_speed"]},
		)
	connector := &consoletest.Connector{Session: session}

	outcome := provision.Run(consoletest.TestContext(t), cfg, runnerOptions(connector, &recordingObserver{}))

	var boundErr *provision.RetryBoundExceededError
	require.ErrorAs(t, outcome.Err, &boundErr)
	assert.Equal(t, provision.PromptStage(10), outcome.Stage)
	assert.Equal(t, []string{"int_speed"}, outcome.Answered)
	assert.Contains(t, outcome.Transcript, "interface speed")
	assert.Equal(t, 1, connector.Closes)
}
