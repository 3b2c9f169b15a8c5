package flow_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/insightloop-backend/internal/flow"
	"github.com/insightloop/insightloop-backend/internal/persona"
)

func sixPersonaTracker(t *testing.T) *flow.Tracker {
	t.Helper()
	var personas []persona.Config
	for i := 1; i <= 6; i++ {
		personas = append(personas, persona.Config{
			ID:   i,
			Slug: fmt.Sprintf("step-%d", i),
			Name: fmt.Sprintf("Step %d", i),
		})
	}
	r, err := persona.New(personas, nil)
	require.NoError(t, err)
	return flow.NewTracker(r)
}

func TestFlowRequiresStart(t *testing.T) {
	tr := sixPersonaTracker(t)

	p := tr.Progress("sess")
	assert.False(t, p.Started)
	assert.Len(t, p.Steps, 6)

	_, err := tr.CompleteCurrent("sess")
	assert.Error(t, err)
}

func TestFlowSequentialCompletion(t *testing.T) {
	tr := sixPersonaTracker(t)

	p := tr.Start("sess")
	require.True(t, p.Started)
	assert.Equal(t, 0, p.CurrentStep)
	assert.Equal(t, 0, p.Percent)

	for i := 0; i < 6; i++ {
		var err error
		p, err = tr.CompleteCurrent("sess")
		require.NoError(t, err)
	}
	assert.True(t, p.Done)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, p.Completed)

	_, err := tr.CompleteCurrent("sess")
	assert.Error(t, err)
}

func TestFlowAdvancesOneStepAtATime(t *testing.T) {
	tr := sixPersonaTracker(t)
	tr.Start("sess")

	p, err := tr.CompleteCurrent("sess")
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStep)
	assert.Equal(t, []int{0}, p.Completed)
	assert.Equal(t, 16, p.Percent)
	assert.False(t, p.Done)
}

func TestFlowRestart(t *testing.T) {
	tr := sixPersonaTracker(t)
	tr.Start("sess")
	_, err := tr.CompleteCurrent("sess")
	require.NoError(t, err)

	p := tr.Restart("sess")
	assert.False(t, p.Started)
	assert.Equal(t, 0, p.CurrentStep)
	assert.Empty(t, p.Completed)
}

func TestFlowIsolatedPerSession(t *testing.T) {
	tr := sixPersonaTracker(t)
	tr.Start("a")
	_, err := tr.CompleteCurrent("a")
	require.NoError(t, err)

	p := tr.Progress("b")
	assert.False(t, p.Started)
	assert.Empty(t, p.Completed)
}
