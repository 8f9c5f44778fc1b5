package swapengine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupThree(t *testing.T) (reg *Registry, a, b, c *Cown[blob]) {
	t.Helper()
	reg = NewRegistry()
	a = NewCown(newBlob(0, 0))
	b = NewCown(newBlob(0, 0))
	c = NewCown(newBlob(0, 0))
	t.Cleanup(func() { a.Release(); b.Release(); c.Release() })
	Register(reg, a, newBlob(64, 0), deserializeBlob)
	Register(reg, b, newBlob(64, 0), deserializeBlob)
	Register(reg, c, newBlob(64, 0), deserializeBlob)
	return
}

func TestSelectVictim_LFU(t *testing.T) {
	reg, a, b, c := setupThree(t)
	a.numAccesses.Store(10)
	b.numAccesses.Store(3)
	c.numAccesses.Store(1)

	victim, ok := SelectVictim(reg, PolicyLFU, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Equal(t, c.ID(), victim)
}

func TestSelectVictim_LRU(t *testing.T) {
	reg, a, b, c := setupThree(t)
	a.lastAccessNanos.Store(300)
	b.lastAccessNanos.Store(100)
	c.lastAccessNanos.Store(200)

	victim, ok := SelectVictim(reg, PolicyLRU, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.Equal(t, b.ID(), victim)
}

func TestSelectVictim_Random(t *testing.T) {
	reg, _, _, _ := setupThree(t)
	victim, ok := SelectVictim(reg, PolicyRandom, rand.New(rand.NewSource(1)))
	require.True(t, ok)
	assert.NotZero(t, victim)
}

func TestSelectVictim_RoundRobinAdvancesCursor(t *testing.T) {
	reg, a, b, c := setupThree(t)

	first, ok := SelectVictim(reg, PolicyRoundRobin, nil)
	require.True(t, ok)

	second, ok := SelectVictim(reg, PolicyRoundRobin, nil)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	third, ok := SelectVictim(reg, PolicyRoundRobin, nil)
	require.True(t, ok)

	ids := map[uint64]bool{first: true, second: true, third: true}
	assert.True(t, ids[a.ID()] && ids[b.ID()] && ids[c.ID()])
}

func TestSelectVictim_SecondChanceSkipsAccessedBit(t *testing.T) {
	reg, a, _, _ := setupThree(t)
	a.secondChanceBit.Store(true)

	// First pass over a clears its bit and moves on instead of evicting
	// it; the eventual victim is whichever entry the clock reaches next
	// with a clear bit.
	victim, ok := SelectVictim(reg, PolicySecondChance, nil)
	require.True(t, ok)
	assert.NotEqual(t, a.ID(), victim)
	assert.False(t, a.SecondChanceBit())
}

func TestSelectVictim_NoneWhenEmpty(t *testing.T) {
	reg := NewRegistry()
	_, ok := SelectVictim(reg, PolicyLRU, rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}

func TestSelectVictim_NoneWhenAllNonResident(t *testing.T) {
	reg, a, b, c := setupThree(t)
	reg.markResident(a.ID(), false)
	reg.markResident(b.ID(), false)
	reg.markResident(c.ID(), false)

	_, ok := SelectVictim(reg, PolicyLRU, rand.New(rand.NewSource(1)))
	assert.False(t, ok)
}

func TestSelectVictimBatch_AccumulatesToTarget(t *testing.T) {
	reg, a, b, c := setupThree(t)
	a.numAccesses.Store(1)
	b.numAccesses.Store(2)
	c.numAccesses.Store(3)

	ids := SelectVictimBatch(reg, PolicyLFU, rand.New(rand.NewSource(1)), 100, 0)
	require.Len(t, ids, 2)
	assert.Equal(t, a.ID(), ids[0])
	assert.Equal(t, b.ID(), ids[1])
}
