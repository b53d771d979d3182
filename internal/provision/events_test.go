package provision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datacenter/wiper/internal/provision"
)

func TestMultiObserver_FansOutInOrder(t *testing.T) {
	first := &recordingObserver{}
	second := &recordingObserver{}
	multi := provision.MultiObserver(first, second, provision.NopObserver{})

	event := provision.Event{
		Type:  provision.EventStageStarted,
		Stage: provision.StageWiping,
	}
	multi.Event(event)

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, event.Type, first.events[0].Type)
	assert.Equal(t, event.Stage, second.events[0].Stage)
}

func TestPromptStage(t *testing.T) {
	assert.Equal(t, provision.Stage("PROMPT_1"), provision.PromptStage(1))
	assert.Equal(t, provision.Stage("PROMPT_12"), provision.PromptStage(12))
}
