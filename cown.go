package swapengine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// cownIDGen assigns stable per-process identifiers, used as the on-disk
// filename stem (spec.md §4.2: "<cown-id>.cown"). The original identifies
// a cown by its address; Go's moving GC makes an address unsuitable as a
// stable key, so a monotonic counter is used instead — it is assigned
// once, at construction, and never changes for the lifetime of the Cown.
var cownIDGen atomic.Uint64

// Cown is a concurrently-owned object managed by the swap engine. Payload
// access is only safe from within a behaviour the host scheduler has
// granted exclusive access for; the engine enforces, via SwapState, that
// the payload is non-nil and IN_MEMORY at that point (spec.md §8).
type Cown[T Swappable] struct {
	id   uint64
	refs refcount

	state *swapState

	// payload is only valid to dereference while state.Load() ==
	// StateInMemory or StateSwapping (the latter only from within the
	// swap behaviour's own body, which writes it to disk and clears it;
	// the fetch body stores a fresh value before transitioning back to
	// StateInMemory). It is guarded by the host scheduler's exclusive
	// access to the cown, not by a mutex of our own — concurrent access
	// from two behaviours on the same cown cannot happen by the runtime
	// contract (spec.md §5, "Ordering guarantees").
	payload atomic.Pointer[T]

	numAccesses     atomic.Uint64
	lastAccessNanos atomic.Int64
	secondChanceBit atomic.Bool

	fetch atomic.Pointer[fetchSlot]
}

// fetchSlot is the one-shot, prepared-but-not-enqueued fetch behaviour
// stashed on a cown when it transitions to ON_DISK (spec.md §3, "Fetch
// slot"; §9, "Fetch behaviour stashing"). Publication (swap body) is a
// release-store via atomic.Pointer.Store; consumption (scheduler splice
// path) is an acquire-load via Swap(nil), making it single-writer,
// single-reader without an explicit mutex.
type fetchSlot struct {
	run func() error
}

// NewCown wraps payload in a new Cown with strong count 1 — the caller
// owns that initial strong reference and must eventually call Release.
func NewCown[T Swappable](payload T) *Cown[T] {
	c := &Cown[T]{
		id:    cownIDGen.Add(1),
		state: newSwapState(StateInMemory),
	}
	c.refs.strong.Store(1)
	c.payload.Store(&payload)
	c.lastAccessNanos.Store(time.Now().UnixNano())
	return c
}

// ID returns the cown's stable per-process identifier.
func (c *Cown[T]) ID() uint64 { return c.id }

// FileName returns the codec's on-disk filename for this cown:
// "<hex-cown-id>.cown" (spec.md §6, "Swap file format").
func (c *Cown[T]) FileName() string {
	return fmt.Sprintf("%016x.cown", c.id)
}

// State returns the current swap state.
func (c *Cown[T]) State() SwapState { return c.state.Load() }

// Payload returns the cown's current in-memory value. ok is false while
// the cown is ON_DISK (spec.md §8: "at the moment B's body runs,
// swap_state(C) = IN_MEMORY and payload(C) != null" — a well-behaved
// behaviour only calls Payload after the scheduler has spliced in any
// pending fetch, so ok is normally true inside a dispatched behaviour).
func (c *Cown[T]) Payload() (T, bool) {
	p := c.payload.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Acquire increments the strong reference count, returning a new owning
// handle to the same Cown. Pair with Release.
func (c *Cown[T]) Acquire() *Cown[T] {
	c.refs.strong.Add(1)
	return c
}

// Release drops a strong reference. It does not itself reclaim anything —
// Go's garbage collector reclaims the Cown once no strong references and
// no reachable weak.Pointer target remain; Release exists so the engine's
// refcount model matches spec.md's observable semantics (strong count
// reaching zero is what makes the *next* Upgrade attempt fail).
func (c *Cown[T]) Release() {
	c.refs.releaseStrong()
}

// Touch is invoked by the scheduler's acquisition hook on every
// behaviour dispatch against this cown (spec.md §6, runtime contract
// consumed: "incrementing num_accesses / updating last_access"). Updates
// use relaxed atomics; policies tolerate stale reads (spec.md §5).
func (c *Cown[T]) Touch() {
	c.numAccesses.Add(1)
	c.lastAccessNanos.Store(time.Now().UnixNano())
	c.secondChanceBit.Store(true)
}

// BeginSwap implements the IN_MEMORY -> SWAPPING transition (spec.md
// §4.5, "IN_MEMORY → SWAPPING (monitor)"). false means the cown is
// already transitioning; the caller should skip it for this pass.
func (c *Cown[T]) BeginSwap() bool {
	return c.state.TryTransition(StateInMemory, StateSwapping)
}

// stashFetch publishes a prepared fetch behaviour to the cown's fetch
// slot. Called from the swap behaviour body just before the
// SWAPPING->ON_DISK transition (spec.md §4.5, step 2). The store is a
// release relative to the subsequent state transition: a scheduler that
// observes ON_DISK is guaranteed to see the stashed behaviour.
func (c *Cown[T]) stashFetch(run func() error) {
	c.fetch.Store(&fetchSlot{run: run})
}

// BeginFetch implements the ON_DISK -> FETCHING transition the scheduler
// drives when it is about to dispatch a behaviour against an evicted
// cown (spec.md §4.5, "ON_DISK → FETCHING (scheduler...)"). On success it
// consumes (clears) the fetch slot and returns a Behaviour wrapping the
// stashed closure; on failure — state wasn't ON_DISK — ok is false and
// the slot is left untouched.
func (c *Cown[T]) BeginFetch() (Behaviour, bool) {
	if !c.state.TryTransition(StateOnDisk, StateFetching) {
		return nil, false
	}
	slot := c.fetch.Swap(nil)
	if slot == nil {
		// Should not happen given the registry invariants, but fail
		// safe: roll back rather than run a nil behaviour.
		c.state.Store(StateOnDisk)
		return nil, false
	}
	return BehaviourFunc(func(ctx context.Context) error {
		return slot.run()
	}), true
}

// NumAccesses returns the monotonic access counter used by the LFU
// policy.
func (c *Cown[T]) NumAccesses() uint64 { return c.numAccesses.Load() }

// LastAccess returns the monotonic timestamp of the most recent
// acquisition, used by the LRU policy.
func (c *Cown[T]) LastAccess() int64 { return c.lastAccessNanos.Load() }

// SecondChanceBit reports and does not clear the bit used by the
// Second-Chance policy; Clear does the clearing. Kept as two methods,
// rather than a destructive test-and-clear, so the bit is a separate flag
// from the LFU counter and the two policies compose cleanly (spec.md §9,
// Open Questions).
func (c *Cown[T]) SecondChanceBit() bool { return c.secondChanceBit.Load() }

// ClearSecondChanceBit clears the bit; called by the selector's sweep.
func (c *Cown[T]) ClearSecondChanceBit() { c.secondChanceBit.Store(false) }
