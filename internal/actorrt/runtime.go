// Package actorrt is a minimal reference implementation of the actor
// scheduler swapengine consumes only as an interface (spec.md §6,
// "runtime contract consumed"). It exists to exercise the swap engine
// end-to-end in tests; it is not a performance-oriented scheduler — cown
// dependency ordering and concurrent dispatch across disjoint cown sets
// are explicitly out of scope for the engine itself, so this reference
// collapses them to a single global critical section.
package actorrt

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cownswap/swapengine"
)

// Runtime serializes every behaviour dispatch behind one mutex. A
// production scheduler would instead acquire a behaviour's cowns in a
// canonical order and run disjoint behaviours concurrently; this
// reference trades that away for simplicity, which is fine here since
// swapengine only needs a Scheduler that honors the ordering guarantees
// of spec.md §5 ("the fetch is spliced as a predecessor... the user
// never observes a half-materialized payload"), not one that scales.
type Runtime struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	external atomic.Int64
}

// New creates an idle Runtime.
func New() *Runtime {
	return &Runtime{}
}

// Schedule implements swapengine.Scheduler. It dispatches b on its own
// goroutine, serialized against every other dispatch via the runtime's
// single mutex.
func (r *Runtime) Schedule(b swapengine.Behaviour, cowns []swapengine.CownHandle, transfer swapengine.TransferSemantics) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.dispatch(context.Background(), b, cowns)
	}()
}

// AddExternalEventSource implements swapengine.Scheduler.
func (r *Runtime) AddExternalEventSource() { r.external.Add(1) }

// RemoveExternalEventSource implements swapengine.Scheduler.
func (r *Runtime) RemoveExternalEventSource() { r.external.Add(-1) }

// ExternalEventSources reports the current count, for tests asserting
// the engine removed itself on Stop.
func (r *Runtime) ExternalEventSources() int64 { return r.external.Load() }

// Wait blocks until every behaviour Schedule has dispatched has
// completed.
func (r *Runtime) Wait() { r.wg.Wait() }

// RunBehaviour dispatches b synchronously against cowns and returns its
// error, for deterministic tests that need the result of a single user
// behaviour (spec.md §8, scenarios 1 and 3: "issue a user behaviour
// touching the cown").
func (r *Runtime) RunBehaviour(ctx context.Context, b swapengine.Behaviour, cowns []swapengine.CownHandle) error {
	return r.dispatch(ctx, b, cowns)
}

// dispatch implements the scheduler-side hooks spec.md §6 requires: for
// each cown in the set, splice in a stashed fetch behaviour if the cown
// is ON_DISK, then record the acquisition, then run the user behaviour.
func (r *Runtime) dispatch(ctx context.Context, b swapengine.Behaviour, cowns []swapengine.CownHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range cowns {
		if c.State() == swapengine.StateOnDisk {
			if fetch, ok := c.BeginFetch(); ok {
				if err := fetch.Run(ctx); err != nil {
					return err
				}
			}
		}
		c.Touch()
	}

	return b.Run(ctx)
}
