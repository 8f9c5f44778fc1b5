package swapengine

import (
	"sync/atomic"
	"weak"
)

// refcount is the strong/weak reference pair carried by every Cown
// (spec.md §3, "Reference counts"). Strong count reflects user ownership;
// weak count reflects observer ownership (held only by the Registry).
// Strong reaching zero means the cown has no live users; a weak holder
// may then fail to Upgrade, which is how the swap scheduler detects dead
// cowns (spec.md §4.5, step 1).
//
// The registry never keeps a Cown reachable by holding a plain pointer to
// it — it holds a weak.Pointer, following eventloop/registry.go's use of
// the weak package for exactly the same reason: an observer must not
// extend the lifetime of the thing it observes.
type refcount struct {
	strong atomic.Int64
	weak   atomic.Int64
}

// acquireStrong increments the strong count iff it is currently non-zero,
// using a CAS loop rather than a blind Add so that Upgrade never revives
// a cown whose strong count has already dropped to zero.
func (r *refcount) acquireStrong() bool {
	for {
		cur := r.strong.Load()
		if cur <= 0 {
			return false
		}
		if r.strong.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// releaseStrong decrements the strong count. Returns true if this
// release brought the count to zero.
func (r *refcount) releaseStrong() bool {
	return r.strong.Add(-1) == 0
}

// WeakCown is an observer reference to a Cown that does not extend its
// lifetime. The Registry stores one WeakCown per registered entry;
// nothing else in the engine holds a plain *Cown across a scheduling
// boundary.
type WeakCown[T Swappable] struct {
	ptr weak.Pointer[Cown[T]]
}

// newWeakCown creates an observer reference and increments the weak
// count of the target. It is the Go analogue of "weak-acquiring" a cown
// (spec.md §3, "Lifecycles").
func newWeakCown[T Swappable](c *Cown[T]) WeakCown[T] {
	c.refs.weak.Add(1)
	return WeakCown[T]{ptr: weak.Make(c)}
}

// Upgrade attempts to promote the weak reference to a strong one. It
// succeeds iff the target is still reachable (has not been garbage
// collected) and its strong count is non-zero. On success the caller is
// responsible for eventually calling Release on the returned Cown.
func (w WeakCown[T]) Upgrade() (*Cown[T], bool) {
	c := w.ptr.Value()
	if c == nil {
		return nil, false
	}
	if !c.refs.acquireStrong() {
		return nil, false
	}
	return c, true
}

// Release weak-releases the observer reference (spec.md §3,
// "Lifecycles": unregistering happens on engine shutdown or when the
// engine observes the strong count has fallen to zero). This must never
// be confused with weak-*acquiring* during unregister — several verona-rt
// source variants call register_cown from within unregister_cown, which
// spec.md §9 calls out as a bug; this method only ever decrements.
func (w WeakCown[T]) Release() {
	if c := w.ptr.Value(); c != nil {
		c.refs.weak.Add(-1)
	}
}
