package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_LinearHappyPath(t *testing.T) {
	order := []State{
		Stage1Running, Stage1Done,
		Stage2Running, Stage2Done,
		Stage3Running, Completed,
	}
	s := NotStarted
	for _, next := range order {
		require.NoError(t, transition(&s, next))
	}
	assert.Equal(t, Completed, s)
	assert.True(t, IsTerminal(s))
}

func TestTransition_GenerationOnlyCompletesAfterStage1(t *testing.T) {
	s := NotStarted
	require.NoError(t, transition(&s, Stage1Running))
	require.NoError(t, transition(&s, Stage1Done))
	require.NoError(t, transition(&s, Completed))
}

func TestTransition_NoSkippingStages(t *testing.T) {
	s := NotStarted
	assert.Error(t, transition(&s, Stage2Running))
	assert.Error(t, transition(&s, Completed))

	s = Stage1Done
	assert.Error(t, transition(&s, Stage3Running))

	s = Stage1Running
	assert.Error(t, transition(&s, Stage2Done))
}

func TestTransition_RunningStatesMayFail(t *testing.T) {
	for _, from := range []State{Stage1Running, Stage2Running, Stage3Running} {
		s := from
		assert.NoError(t, transition(&s, Failed), string(from))
	}
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, from := range []State{Completed, Failed} {
		for _, to := range []State{NotStarted, Stage1Running, Completed, Failed} {
			s := from
			assert.Error(t, transition(&s, to), "%s -> %s", from, to)
		}
	}
}
