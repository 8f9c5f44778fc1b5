package swapengine

import "sync"

// cownMeta is the payload-type-erased view of a Cown[T] that the
// Registry and victim selector operate over. Every *Cown[T] satisfies it
// regardless of T, since none of these methods mention T — that lets one
// Registry track cowns of heterogeneous payload types without resorting
// to reflection or an any-typed escape hatch.
type cownMeta interface {
	ID() uint64
	State() SwapState
	NumAccesses() uint64
	LastAccess() int64
	SecondChanceBit() bool
	ClearSecondChanceBit()
	Release()
}

// entry is a Registry's view of one registered cown (spec.md §4.3): a
// weak handle (via upgrade), a byte size for accounting, and a resident
// flag. swapOut (which also prepares the fetch closure) closes over the
// cown's concrete payload type T so the Registry itself never needs to
// know it.
type entry struct {
	id          uint64
	upgrade     func() (cownMeta, bool)
	handle      func() (CownHandle, bool)
	weakRelease func()
	swapOut     func(codec *Codec) (freedBytes int64, err error)

	size     int64
	resident bool
}

// Registry is the mutex-guarded, ordered collection of cowns the engine
// is currently managing (spec.md §4.3). Ordering is insertion order;
// Round-Robin and Second-Chance rely on it via the cursor.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	byID    map[uint64]int
	cursor  int

	sizeBytes int64
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint64]int)}
}

// Register adds c to the registry. Size is sampled once, from payload,
// at registration time (spec.md §4.1, size oracle). deserialize is
// stashed for use by the fetch behaviour the swap scheduler later
// synthesizes. Registration weak-acquires the cown (spec.md §3,
// "Lifecycles").
//
// Register is a free function, not a Registry method, because Go methods
// cannot introduce additional type parameters beyond the receiver's.
//
// swapOut (built here, closing over T) does the full job of spec.md
// §4.5 steps 2-3 for a single cown: write the payload, free it, stash a
// fetch closure that reconstructs it later, and drive the SwapState
// transition that follows the write (SWAPPING to ON_DISK, or back to
// IN_MEMORY on failure); the IN_MEMORY to SWAPPING step before it is
// BeginSwap, called by the swap scheduler. Folding fetch-preparation into
// swapOut — rather than keeping it a separate entry field — mirrors the
// source's ordering requirement that the fetch slot is populated before
// the cown is ever observably ON_DISK.
func Register[T Swappable](reg *Registry, c *Cown[T], payload T, deserialize Deserializer[T]) {
	wc := newWeakCown(c)
	id := c.ID()

	e := &entry{
		id: id,
		upgrade: func() (cownMeta, bool) {
			cc, ok := wc.Upgrade()
			if !ok {
				return nil, false
			}
			return cc, true
		},
		handle: func() (CownHandle, bool) {
			cc, ok := wc.Upgrade()
			if !ok {
				return nil, false
			}
			return cc, true
		},
		weakRelease: wc.Release,
		swapOut: func(codec *Codec) (int64, error) {
			c, ok := wc.Upgrade()
			if !ok {
				return 0, wrapf(ErrSwapFailed, "cown %d is no longer alive", id)
			}
			defer c.Release()
			p := c.payload.Load()
			if p == nil {
				c.state.Store(StateInMemory)
				return 0, wrapf(ErrSwapFailed, "cown %d has no resident payload", c.id)
			}
			n, err := WriteCown(codec, c, *p)
			if err != nil {
				c.state.TryTransition(StateSwapping, StateInMemory)
				return 0, wrapCause(ErrSwapFailed, err)
			}
			c.payload.Store(nil)
			c.stashFetch(func() error {
				fresh, ferr := ReadCown(codec, c, deserialize)
				if ferr != nil {
					c.state.TryTransition(StateFetching, StateOnDisk)
					return wrapCause(ErrFetchFailed, ferr)
				}
				c.payload.Store(&fresh)
				reg.markResident(c.id, true)
				c.state.TryTransition(StateFetching, StateInMemory)
				return nil
			})
			c.state.TryTransition(StateSwapping, StateOnDisk)
			return int64(n), nil
		},
		size:     int64(payload.Size()),
		resident: true,
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if idx, ok := reg.byID[e.id]; ok {
		// Double registration is idempotent (spec.md §7): keep the
		// existing entry, release the new weak handle we just took.
		_ = idx
		wc.Release()
		return
	}

	reg.byID[e.id] = len(reg.entries)
	reg.entries = append(reg.entries, e)
	reg.sizeBytes += e.size
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SizeBytes returns the sum of payload_size_bytes over resident entries
// (spec.md §3, registry invariants), i.e. cowns_size_bytes.
func (r *Registry) SizeBytes() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sizeBytes
}

// removeAt swap-removes the entry at index i and weak-releases it. Must
// be called with mu held.
func (r *Registry) removeAt(i int) {
	e := r.entries[i]
	if e.resident {
		r.sizeBytes -= e.size
	}
	last := len(r.entries) - 1
	r.entries[i] = r.entries[last]
	r.byID[r.entries[i].id] = i
	r.entries = r.entries[:last]
	delete(r.byID, e.id)
	if r.cursor > last {
		r.cursor = 0
	}
	e.weakRelease()
}

// Remove unregisters the cown with the given id, if present.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[id]; ok {
		r.removeAt(i)
	}
}

// markResident flips the resident flag for id and adjusts cowns_size_bytes
// accordingly. Called by the monitor (false, right after it schedules a
// swap batch) and the fetch behaviour body (true, on completion).
func (r *Registry) markResident(id uint64, resident bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return
	}
	e := r.entries[i]
	if e.resident == resident {
		return
	}
	e.resident = resident
	if resident {
		r.sizeBytes += e.size
	} else {
		r.sizeBytes -= e.size
	}
}

// sweepDead removes every entry whose weak handle fails to upgrade,
// i.e. whose strong count has fallen to zero (spec.md §4.3, registry
// invariants: "A cown whose strong count hits zero is removed from the
// registry at next monitor pass"). Returns the number removed.
func (r *Registry) sweepDead() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for i := 0; i < len(r.entries); {
		e := r.entries[i]
		cc, ok := e.upgrade()
		if !ok {
			r.removeAt(i)
			removed++
			continue
		}
		// cc is a new strong reference; release it immediately, we only
		// needed to prove liveness.
		cc.Release()
		i++
	}
	return removed
}

// snapshot copies the current entries and cursor under the lock, for use
// by SelectVictim, which must run lock-free relative to the registry
// (the monitor holds the lock only for the duration of this call, per
// spec.md §5, "Suspension points"). The copy is by value, not by
// pointer: entry.resident is mutated by markResident from a concurrent
// swap/fetch behaviour's completion callback, so a slice of *entry would
// let the selector read that field without holding r.mu after the lock
// here is released. Copying the struct itself freezes resident (and
// size, which never changes after Register) at snapshot time, giving the
// selector a consistent, race-free borrow per spec.md §4.3,
// "snapshot_for_selection... caller holds the lock" — the lock is held
// for the whole copy, and nothing thereafter touches live registry
// state.
func (r *Registry) snapshot() ([]entry, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]entry, len(r.entries))
	for i, e := range r.entries {
		cp[i] = *e
	}
	return cp, r.cursor
}

// setCursor stores the selector's advanced cursor back into the
// registry.
func (r *Registry) setCursor(c int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		r.cursor = 0
		return
	}
	r.cursor = c % len(r.entries)
}

// unregisterAll weak-releases every entry; used by the monitor's final
// tick on Stop (spec.md §4.6, "Shutdown").
func (r *Registry) unregisterAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		e.weakRelease()
	}
	r.entries = r.entries[:0]
	r.byID = make(map[uint64]int)
	r.sizeBytes = 0
	r.cursor = 0
}
