package traffic_test

import (
	"testing"

	"github.com/enetx/hfsm"
	"github.com/enetx/hfsm/internal/traffic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_Cycle(t *testing.T) {
	m := traffic.Definition().New()

	assert.Equal(t, traffic.Green, m.Current())
	assert.True(t, m.Matches(traffic.Operating))

	for _, want := range []hfsm.State{traffic.Yellow, traffic.Red, traffic.Green} {
		require.NoError(t, m.Send(traffic.Next))
		assert.Equal(t, want, m.Current())
	}

	assert.Equal(t, 1, m.Context().Cycles)
	assert.Len(t, m.History(), 3)
}

func TestDefinition_Emergency(t *testing.T) {
	m := traffic.Definition().New()

	require.NoError(t, m.Send(traffic.Emergency, map[string]any{"reason": "ambulance"}))
	assert.Equal(t, traffic.Flashing, m.Current())
	assert.False(t, m.Matches(traffic.Operating))
	assert.Equal(t, "ambulance", m.Context().Reason)

	// CLEAR is guarded until the light has blinked at least once.
	require.NoError(t, m.Send(traffic.Clear))
	assert.Equal(t, traffic.Flashing, m.Current())
	assert.False(t, m.Can(traffic.Clear))

	require.NoError(t, m.Send(traffic.Tick))
	require.NoError(t, m.Send(traffic.Tick))
	assert.Equal(t, 2, m.Context().Blinks)
	assert.Len(t, m.History(), 1)

	require.NoError(t, m.Send(traffic.Clear))
	assert.Equal(t, traffic.Red, m.Current())
	assert.Equal(t, traffic.Light{}, m.Context())
}

func TestDefinition_States(t *testing.T) {
	def := traffic.Definition()

	assert.Equal(t, traffic.Green, def.Initial())
	assert.ElementsMatch(t,
		[]hfsm.State{traffic.Green, traffic.Yellow, traffic.Red, traffic.Flashing, traffic.Operating},
		def.States(),
	)
}
