package swapengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManualMonitor(t *testing.T) *Monitor {
	t.Helper()
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)
	reg := NewRegistry()
	swaps := newSwapScheduler(nil, codec, nil, DefaultMaxInFlight)
	cfg := monitorConfig{
		limitBytes: 0,
		multiplier: DefaultMultiplier,
		policy:     PolicyLRU,
		manualTick: true,
		rngSeed:    1,
	}
	return newMonitor(cfg, reg, swaps, nil, nil)
}

func TestMonitor_AverageNotAccumulatedBeforeStartAveraging(t *testing.T) {
	m := newManualMonitor(t)

	m.Tick()
	m.Tick()
	m.Tick()

	assert.Equal(t, int64(0), m.AverageUsageMB())
}

func TestMonitor_StartAveragingAccumulatesOncePerSecond(t *testing.T) {
	m := newManualMonitor(t)
	m.StartAveraging()

	m.Tick()
	first := m.AverageUsageMB()

	// Ticking again immediately must not add a second sample: spec.md
	// §4.6 step 2 updates the accumulator "once per second", not once
	// per tick.
	m.Tick()
	m.Tick()
	second := m.AverageUsageMB()

	assert.Equal(t, first, second)
}
