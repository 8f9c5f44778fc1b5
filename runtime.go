package swapengine

import "context"

// Behaviour is a unit of work the host scheduler runs with exclusive
// access to its cown set (spec.md §6, "Runtime contract consumed"). The
// engine only ever produces behaviours as closures; Behaviour exists so
// Scheduler implementations outside this package can accept them without
// depending on a concrete function type.
type Behaviour interface {
	Run(ctx context.Context) error
}

// BehaviourFunc adapts a plain function to a Behaviour.
type BehaviourFunc func(ctx context.Context) error

// Run calls f.
func (f BehaviourFunc) Run(ctx context.Context) error { return f(ctx) }

// TransferSemantics controls ownership of the strong references a
// Schedule caller passes in alongside a cown set.
type TransferSemantics int

const (
	// TransferOwned means the strong references belong to the behaviour,
	// which releases them itself when its body finishes; the scheduler
	// must not call Release (used for the engine's own swap behaviour,
	// which consumes the strong references it upgraded during selection).
	TransferOwned TransferSemantics = iota
	// TransferBorrowed means the caller retains ownership; the scheduler
	// must not call Release.
	TransferBorrowed
)

// CownHandle is the scheduler-facing, payload-type-erased view of a
// registered cown (spec.md §6, dispatch-path hooks (i)-(iii)). Every
// *Cown[T] implements it.
type CownHandle interface {
	ID() uint64
	State() SwapState

	// Touch records a behaviour acquisition: increments num_accesses,
	// updates last_access, and sets the second-chance bit (hook iii).
	// The scheduler calls this once per dispatch, before running the
	// user behaviour's body.
	Touch()

	// BeginSwap attempts the IN_MEMORY -> SWAPPING transition. The swap
	// scheduler calls this during victim processing; false means the
	// cown is already mid-transition and selection should move on.
	BeginSwap() bool

	// BeginFetch attempts the ON_DISK -> FETCHING transition (hook ii).
	// On success it returns the stashed fetch behaviour the scheduler
	// must splice in as a predecessor of whatever behaviour triggered
	// the call; ok is false if the cown was not ON_DISK (nothing to
	// splice, the scheduler proceeds with the original behaviour
	// unmodified).
	BeginFetch() (fetch Behaviour, ok bool)

	// Release drops the strong reference that produced this handle —
	// every CownHandle originates from a weak-upgrade somewhere upstream
	// (the registry's scan, or the scheduler's own bookkeeping).
	Release()
}

// Scheduler is the actor runtime contract the engine requires (spec.md
// §6). The engine never dispatches user behaviours itself; it only
// injects swap and fetch behaviours through this interface and expects
// the host runtime to interleave them with user work per the ordering
// guarantees in spec.md §5.
//
// Prepare, named in the source runtime contract as a separate
// "produce a behaviour without scheduling" step, has no counterpart
// here: a Go closure already is an unscheduled, fully-formed behaviour,
// so fetch stashing (spec.md §4.5, step 2) just builds a BehaviourFunc
// and stores it without any Scheduler involvement.
type Scheduler interface {
	// Schedule enqueues b to run once every cown in cowns is available
	// with the access mode the behaviour needs.
	Schedule(b Behaviour, cowns []CownHandle, transfer TransferSemantics)

	// AddExternalEventSource prevents the runtime from deciding it has
	// quiesced and may shut down while the monitor is still alive.
	AddExternalEventSource()

	// RemoveExternalEventSource is called once, from the monitor's final
	// tick, to let the runtime quiesce after Stop.
	RemoveExternalEventSource()
}
