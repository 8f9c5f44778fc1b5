package swapengine_test

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cownswap/swapengine"
	"github.com/cownswap/swapengine/internal/actorrt"
)

type payload struct {
	data []byte
}

func newPayload(n int, fill byte) payload {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return payload{data: b}
}

func (p payload) SerializeOut(w io.Writer) error {
	_, err := w.Write(p.data)
	return err
}

func (p payload) Size() int { return len(p.data) }

func deserializePayload(r io.Reader) (payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return payload{}, err
	}
	return payload{data: data}, nil
}

// TestEngine_BasicSwapFetchRoundTrip is spec.md §8, scenario 1.
func TestEngine_BasicSwapFetchRoundTrip(t *testing.T) {
	rt := actorrt.New()
	eng, err := swapengine.Create(rt, 1, 60, swapengine.PolicyLRU,
		swapengine.WithManualTick(),
		swapengine.WithSwapDir(t.TempDir()),
	)
	require.NoError(t, err)

	original := newPayload(2*1024*1024, 0xAB)
	c := swapengine.NewCown(original)
	defer c.Release()
	require.True(t, swapengine.RegisterCown(eng, c, original, deserializePayload))

	eng.Monitor().Tick()
	rt.Wait()

	require.Equal(t, swapengine.StateOnDisk, c.State())
	require.FileExists(t, eng.Codec().Dir()+"/"+c.FileName())

	var observed payload
	behaviour := swapengine.BehaviourFunc(func(ctx context.Context) error {
		got, ok := c.Payload()
		require.True(t, ok)
		observed = got
		return nil
	})
	require.NoError(t, rt.RunBehaviour(context.Background(), behaviour, []swapengine.CownHandle{c}))

	assert.Equal(t, swapengine.StateInMemory, c.State())
	assert.Equal(t, original, observed)

	eng.Stop()
}

// TestEngine_DeadCownReclamation is spec.md §8, scenario 4.
func TestEngine_DeadCownReclamation(t *testing.T) {
	rt := actorrt.New()
	eng, err := swapengine.Create(rt, 1, 60, swapengine.PolicyLRU,
		swapengine.WithManualTick(),
		swapengine.WithSwapDir(t.TempDir()),
	)
	require.NoError(t, err)

	c := swapengine.NewCown(newPayload(8, 1))
	require.True(t, swapengine.RegisterCown(eng, c, newPayload(8, 1), deserializePayload))
	c.Release() // drop the only strong reference from user code

	require.Equal(t, 1, eng.Registry().Len())
	eng.Monitor().Tick()
	assert.Equal(t, 0, eng.Registry().Len())

	eng.Stop()
}

// TestEngine_ShutdownUnregistersAndRemovesEventSource is spec.md §8,
// scenario 6.
func TestEngine_ShutdownUnregistersAndRemovesEventSource(t *testing.T) {
	rt := actorrt.New()
	eng, err := swapengine.Create(rt, 1, 60, swapengine.PolicyLRU,
		swapengine.WithManualTick(),
		swapengine.WithSwapDir(t.TempDir()),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		p := newPayload(8, byte(i))
		c := swapengine.NewCown(p)
		defer c.Release()
		require.True(t, swapengine.RegisterCown(eng, c, p, deserializePayload))
	}

	require.Equal(t, int64(1), rt.ExternalEventSources())

	eng.StartAveraging()
	eng.Monitor().Tick()

	avg := eng.Stop()
	assert.Greater(t, avg, int64(0))
	assert.Equal(t, 0, eng.Registry().Len())
	assert.Equal(t, int64(0), rt.ExternalEventSources())
}

// TestEngine_LimitZeroDisablesEviction is spec.md §8, boundary behavior
// "limit = 0 => no eviction".
func TestEngine_LimitZeroDisablesEviction(t *testing.T) {
	rt := actorrt.New()
	eng, err := swapengine.Create(rt, 0, 60, swapengine.PolicyLRU,
		swapengine.WithManualTick(),
		swapengine.WithSwapDir(t.TempDir()),
	)
	require.NoError(t, err)

	p := newPayload(4*1024*1024, 1)
	c := swapengine.NewCown(p)
	defer c.Release()
	require.True(t, swapengine.RegisterCown(eng, c, p, deserializePayload))

	eng.Monitor().Tick()
	rt.Wait()

	assert.Equal(t, swapengine.StateInMemory, c.State())
	eng.Stop()
}
