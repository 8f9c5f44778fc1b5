package swapengine

import "io"

// Swappable is the capability a payload type must satisfy for its cown to
// be managed by the engine (spec.md §4.1). Registration is generic over
// this interface and rejects types that don't satisfy it at compile time;
// there is no runtime trait-detection duck-typing step, unlike the
// verona-rt original's is_pointer_v check (see DESIGN.md, the
// "Serialization capability" row).
type Swappable interface {
	// SerializeOut writes the payload's current value to w, and must
	// leave the receiver in a state where its in-memory form can be
	// safely dropped by the caller afterward (destroying or detaching
	// any owned resources it would otherwise double-free).
	SerializeOut(w io.Writer) error

	// Size reports the current byte footprint of the in-memory payload,
	// used for registry accounting. It must be safe to call at any point
	// before SerializeOut runs.
	Size() int
}

// Deserializer reconstructs a Swappable payload of type T from a byte
// stream, allocating a fresh in-memory form. It is supplied once at
// registration time (as opposed to being a method on T) because
// SerializeIn must produce a *new* value rather than mutate a receiver
// that, by definition, does not exist while a cown is ON_DISK.
type Deserializer[T Swappable] func(r io.Reader) (T, error)
