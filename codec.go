package swapengine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// Codec serializes one cown's payload at a time to a file named by the
// cown's id under a process-local swap directory (spec.md §4.2, §6). File
// name is "<hex-cown-id>.cown"; writes go through natefinch/atomic so a
// crash mid-swap can never leave a torn file behind — the same technique
// calvinalkan-agent-task's binary ticket cache uses for its own on-disk
// format (cache_binary.go, writeBinaryCache).
type Codec struct {
	dir string
}

// DefaultSwapDir returns the directory the codec uses when none is
// supplied explicitly: $TMPDIR/swap-engine/cowns (spec.md §6).
func DefaultSwapDir() string {
	return filepath.Join(os.TempDir(), "swap-engine", "cowns")
}

// NewCodec creates the swap directory (0700, owner-only) if it does not
// already exist and returns a Codec rooted there.
func NewCodec(dir string) (*Codec, error) {
	if dir == "" {
		dir = DefaultSwapDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("swapengine: creating swap directory %s: %w", dir, err)
	}
	return &Codec{dir: dir}, nil
}

// Dir returns the swap directory this codec writes under.
func (c *Codec) Dir() string { return c.dir }

func (c *Codec) path(name string) string {
	return filepath.Join(c.dir, name)
}

// writeBytes atomically writes data to name under the swap directory.
func (c *Codec) writeBytes(name string, data []byte) error {
	return atomic.WriteFile(c.path(name), bytes.NewReader(data))
}

// readBytes reads the full contents of name under the swap directory.
func (c *Codec) readBytes(name string) ([]byte, error) {
	return os.ReadFile(c.path(name))
}

// Remove deletes the swap file for name, if present; absence of the file
// is not an error. The engine's own dead-cown handling and shutdown do
// not call it, so their swap files stay on disk.
func (c *Codec) Remove(name string) error {
	err := os.Remove(c.path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// WriteCown serializes payload via its Swappable.SerializeOut and writes
// the result to disk under the cown's filename, returning the number of
// bytes written for registry accounting.
func WriteCown[T Swappable](codec *Codec, c *Cown[T], payload T) (int, error) {
	var buf bytes.Buffer
	if err := payload.SerializeOut(&buf); err != nil {
		return 0, fmt.Errorf("swapengine: serializing cown %d: %w", c.id, err)
	}
	if err := codec.writeBytes(c.FileName(), buf.Bytes()); err != nil {
		return 0, fmt.Errorf("swapengine: writing swap file for cown %d: %w", c.id, err)
	}
	return buf.Len(), nil
}

// ReadCown reads the swap file for c and reconstructs the payload using
// deserialize.
func ReadCown[T Swappable](codec *Codec, c *Cown[T], deserialize Deserializer[T]) (T, error) {
	var zero T
	data, err := codec.readBytes(c.FileName())
	if err != nil {
		return zero, fmt.Errorf("swapengine: reading swap file for cown %d: %w", c.id, err)
	}
	payload, err := deserialize(bytes.NewReader(data))
	if err != nil {
		return zero, fmt.Errorf("swapengine: deserializing cown %d: %w", c.id, err)
	}
	return payload, nil
}
