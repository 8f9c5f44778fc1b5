package swapengine

import "io"

// blob is the Swappable payload type used across the test suite: a
// plain byte buffer that round-trips verbatim, standing in for a real
// cown payload the way a benchmark driver's buffer would (spec.md §8,
// scenario 1).
type blob struct {
	data []byte
}

func newBlob(n int, fill byte) blob {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return blob{data: b}
}

func (b blob) SerializeOut(w io.Writer) error {
	_, err := w.Write(b.data)
	return err
}

func (b blob) Size() int { return len(b.data) }

func deserializeBlob(r io.Reader) (blob, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return blob{}, err
	}
	return blob{data: data}, nil
}
