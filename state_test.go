package swapengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapState_String(t *testing.T) {
	cases := map[SwapState]string{
		StateInMemory: "IN_MEMORY",
		StateSwapping: "SWAPPING",
		StateOnDisk:   "ON_DISK",
		StateFetching: "FETCHING",
		SwapState(99): "UNKNOWN",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestSwapState_TryTransition(t *testing.T) {
	s := newSwapState(StateInMemory)
	require.True(t, s.TryTransition(StateInMemory, StateSwapping))
	assert.Equal(t, StateSwapping, s.Load())

	// Wrong "from" fails and leaves state untouched.
	require.False(t, s.TryTransition(StateInMemory, StateOnDisk))
	assert.Equal(t, StateSwapping, s.Load())

	require.True(t, s.TryTransition(StateSwapping, StateOnDisk))
	assert.Equal(t, StateOnDisk, s.Load())
}

func TestSwapState_FullLifecycle(t *testing.T) {
	s := newSwapState(StateInMemory)
	transitions := []struct{ from, to SwapState }{
		{StateInMemory, StateSwapping},
		{StateSwapping, StateOnDisk},
		{StateOnDisk, StateFetching},
		{StateFetching, StateInMemory},
	}
	for _, tr := range transitions {
		require.True(t, s.TryTransition(tr.from, tr.to))
	}
	assert.Equal(t, StateInMemory, s.Load())
}

func TestSwapState_ErrorBackEdges(t *testing.T) {
	s := newSwapState(StateSwapping)
	require.True(t, s.TryTransition(StateSwapping, StateInMemory))
	assert.Equal(t, StateInMemory, s.Load())

	s2 := newSwapState(StateFetching)
	require.True(t, s2.TryTransition(StateFetching, StateOnDisk))
	assert.Equal(t, StateOnDisk, s2.Load())
}
