package swapengine

import "sync/atomic"

// SwapState is the atomic lifecycle marker carried by every registered
// cown (spec.md §3). Only IN_MEMORY and ON_DISK are stable; SWAPPING and
// FETCHING are transient states held only while a behaviour is in flight.
type SwapState uint32

const (
	// StateInMemory indicates the payload is resident and no swap
	// activity is pending.
	StateInMemory SwapState = iota
	// StateSwapping indicates a swap behaviour has been scheduled or is
	// running; the payload is still valid until it completes.
	StateSwapping
	// StateOnDisk indicates the payload has been serialized and freed; a
	// fetch behaviour is stashed in the cown's fetch slot.
	StateOnDisk
	// StateFetching indicates a fetch behaviour is running and the
	// payload is being reconstructed.
	StateFetching
)

// String returns a human-readable representation of the state.
func (s SwapState) String() string {
	switch s {
	case StateInMemory:
		return "IN_MEMORY"
	case StateSwapping:
		return "SWAPPING"
	case StateOnDisk:
		return "ON_DISK"
	case StateFetching:
		return "FETCHING"
	default:
		return "UNKNOWN"
	}
}

// swapState is a lock-free state machine over SwapState, following the
// eventloop package's FastState: a bare atomic value plus CAS-based
// transitions, no mutex.
type swapState struct {
	v atomic.Uint32
}

func newSwapState(initial SwapState) *swapState {
	s := &swapState{}
	s.v.Store(uint32(initial))
	return s
}

// Load returns the current state.
func (s *swapState) Load() SwapState {
	return SwapState(s.v.Load())
}

// Store unconditionally sets the state. Used only for the unconditional
// rollback paths (BeginFetch's empty-slot case in cown.go and the
// missing-payload case of the swap closure built in registry.go);
// everywhere else transitions go through CAS.
func (s *swapState) Store(state SwapState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts the CAS from -> to, returning whether it
// succeeded. A failed transition means another behaviour is already
// driving the cown through a different transition; the caller (the
// monitor or the scheduler splice path) must retry selection rather than
// clobber the state.
func (s *swapState) TryTransition(from, to SwapState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
