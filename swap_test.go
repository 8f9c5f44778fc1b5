package swapengine

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingScheduler struct {
	scheduled []Behaviour
	external  int
}

func (s *recordingScheduler) Schedule(b Behaviour, cowns []CownHandle, transfer TransferSemantics) {
	s.scheduled = append(s.scheduled, b)
	_ = b.Run(context.Background())
}
func (s *recordingScheduler) AddExternalEventSource()    { s.external++ }
func (s *recordingScheduler) RemoveExternalEventSource() { s.external-- }

func TestSwapScheduler_ThrottleCap(t *testing.T) {
	sched := &recordingScheduler{}
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)
	swaps := newSwapScheduler(sched, codec, nil, 1)

	reg := NewRegistry()
	payload := newBlob(8, 1)
	c := NewCown(payload)
	defer c.Release()
	Register(reg, c, payload, deserializeBlob)
	entries, _ := reg.snapshot()

	require.True(t, swaps.tryReserve())
	_, _, ok := swaps.ScheduleBatch(entries)
	assert.False(t, ok, "in-flight cap already reserved")

	swaps.release()
	_, _, ok = swaps.ScheduleBatch(entries)
	assert.True(t, ok)
}

func TestSwapScheduler_DeadCownDetected(t *testing.T) {
	sched := &recordingScheduler{}
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)
	swaps := newSwapScheduler(sched, codec, nil, 4)

	reg := NewRegistry()
	payload := newBlob(8, 1)
	c := NewCown(payload)
	Register(reg, c, payload, deserializeBlob)
	c.Release() // strong count -> 0, no other owner

	entries, _ := reg.snapshot()
	scheduled, dead, ok := swaps.ScheduleBatch(entries)
	require.True(t, ok)
	assert.Empty(t, scheduled)
	assert.Equal(t, []uint64{c.ID()}, dead)
}

func TestSwapScheduler_WriteThenFetchTransitions(t *testing.T) {
	sched := &recordingScheduler{}
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)
	swaps := newSwapScheduler(sched, codec, nil, 4)

	reg := NewRegistry()
	payload := newBlob(32, 7)
	c := NewCown(payload)
	defer c.Release()
	Register(reg, c, payload, deserializeBlob)

	entries, _ := reg.snapshot()
	scheduled, dead, ok := swaps.ScheduleBatch(entries)
	require.True(t, ok)
	require.Empty(t, dead)
	require.Equal(t, []uint64{c.ID()}, scheduled)

	// recordingScheduler ran the swap behaviour synchronously above.
	assert.Equal(t, StateOnDisk, c.State())

	fetch, ok := c.BeginFetch()
	require.True(t, ok)
	require.NoError(t, fetch.Run(context.Background()))
	assert.Equal(t, StateInMemory, c.State())

	got, ok := c.Payload()
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestSwapScheduler_WriteFailureRollsBackToInMemory(t *testing.T) {
	sched := &recordingScheduler{}
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)
	// Remove the directory out from under the codec so the write fails
	// (spec.md §7, "I/O failure during serialize... rollback").
	require.NoError(t, os.RemoveAll(codec.Dir()))
	require.NoError(t, os.WriteFile(codec.Dir(), nil, 0o600)) // occupy the path with a file so MkdirAll-less writes fail

	swaps := newSwapScheduler(sched, codec, nil, 4)
	reg := NewRegistry()
	payload := newBlob(8, 1)
	c := NewCown(payload)
	defer c.Release()
	Register(reg, c, payload, deserializeBlob)

	entries, _ := reg.snapshot()
	_, _, ok := swaps.ScheduleBatch(entries)
	require.True(t, ok)

	assert.Equal(t, StateInMemory, c.State())
	got, present := c.Payload()
	require.True(t, present)
	assert.Equal(t, payload, got)
}
