package swapengine

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestCodec_WriteReadRoundTrip(t *testing.T) {
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)

	c := NewCown(newBlob(0, 0))
	defer c.Release()

	payload := newBlob(256, 0x42)

	n, err := WriteCown(codec, c, payload)
	require.NoError(t, err)
	require.Equal(t, 256, n)

	got, err := ReadCown(codec, c, deserializeBlob)
	require.NoError(t, err)
	if diff := cmp.Diff(payload, got, cmp.AllowUnexported(blob{})); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCodec_FileNamedByCownID(t *testing.T) {
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)

	c := NewCown(newBlob(0, 0))
	defer c.Release()

	_, err = WriteCown(codec, c, newBlob(8, 1))
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(codec.Dir(), c.FileName()))
}

func TestCodec_RemoveIsIdempotent(t *testing.T) {
	codec, err := NewCodec(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, codec.Remove("0000000000000000.cown"))
}
