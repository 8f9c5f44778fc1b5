package swapengine

import (
	"math/rand"

	"golang.org/x/exp/constraints"
)

// argmin returns the index of the smallest key(items[i]) in items, or -1
// for an empty slice. Generalized over constraints.Ordered the way
// catrate/ring.go parameterizes its ring buffer over ordered element
// types — here applied to whatever scalar a policy ranks candidates by
// (an access timestamp for LRU, an access count for LFU) rather than a
// buffer element.
func argmin[T any, K constraints.Ordered](items []T, key func(T) K) int {
	if len(items) == 0 {
		return -1
	}
	best := 0
	bestKey := key(items[0])
	for i := 1; i < len(items); i++ {
		if k := key(items[i]); k < bestKey {
			bestKey = k
			best = i
		}
	}
	return best
}

// SelectVictim runs the configured replacement policy once over reg's
// current resident entries and returns the id of the cown to swap out
// next (spec.md §4.4). It returns ok == false when there are no resident
// candidates (spec.md §7, "Nothing to evict").
func SelectVictim(reg *Registry, policy Policy, rng *rand.Rand) (id uint64, ok bool) {
	entries, cursor := reg.snapshot()
	claimed := make([]bool, len(entries))
	i, _, nextCursor, ok := selectOne(entries, claimed, cursor, policy, rng)
	if !ok {
		return 0, false
	}
	if policy == PolicyRoundRobin || policy == PolicySecondChance {
		reg.setCursor(nextCursor)
	}
	return entries[i].id, true
}

// SelectVictimBatch calls the selector repeatedly against one registry
// snapshot, accumulating resident entries until their aggregate
// payload_size_bytes reaches targetBytes or maxCount entries have been
// chosen, whichever comes first (spec.md §4.6, step 3b: "accumulating a
// batch whose aggregate byte size ≥ bytes to shed, subject to a batch
// cap"). maxCount <= 0 means no cap beyond the registry's own size.
//
// Unlike repeated calls to SelectVictim, a single snapshot is reused and
// already-chosen entries are excluded locally, so LRU/LFU don't pick the
// same cown twice just because its resident flag hasn't flipped yet.
func SelectVictimBatch(reg *Registry, policy Policy, rng *rand.Rand, targetBytes int64, maxCount int) []uint64 {
	entries, cursor := reg.snapshot()
	claimed := make([]bool, len(entries))

	var ids []uint64
	var shed int64
	cur := cursor
	for targetBytes <= 0 || shed < targetBytes {
		if maxCount > 0 && len(ids) >= maxCount {
			break
		}
		i, size, next, ok := selectOne(entries, claimed, cur, policy, rng)
		if !ok {
			break
		}
		claimed[i] = true
		ids = append(ids, entries[i].id)
		shed += size
		cur = next
	}

	if policy == PolicyRoundRobin || policy == PolicySecondChance {
		reg.setCursor(cur)
	}
	return ids
}

// selectOne is the shared core behind SelectVictim and SelectVictimBatch:
// pick one resident, unclaimed entry by policy. Returns the chosen
// entry's index into entries, its size, the cursor value the caller
// should continue from, and whether a candidate was found at all.
func selectOne(entries []entry, claimed []bool, cursor int, policy Policy, rng *rand.Rand) (idx int, size int64, nextCursor int, ok bool) {
	switch policy {
	case PolicyLRU, PolicyLFU:
		return selectByMetric(entries, claimed, policy, cursor)
	case PolicyRandom:
		return selectRandom(entries, claimed, rng, cursor)
	case PolicyRoundRobin:
		return scanClock(entries, claimed, cursor, false)
	case PolicySecondChance:
		return scanClock(entries, claimed, cursor, true)
	default:
		return 0, 0, cursor, false
	}
}

type metaCandidate struct {
	idx         int
	lastAccess  int64
	numAccesses uint64
}

func selectByMetric(entries []entry, claimed []bool, policy Policy, cursor int) (int, int64, int, bool) {
	var cands []metaCandidate
	for i, e := range entries {
		if claimed[i] || !e.resident {
			continue
		}
		m, ok := e.upgrade()
		if !ok {
			continue
		}
		cands = append(cands, metaCandidate{idx: i, lastAccess: m.LastAccess(), numAccesses: m.NumAccesses()})
		m.Release()
	}
	if len(cands) == 0 {
		return 0, 0, cursor, false
	}
	var j int
	if policy == PolicyLRU {
		j = argmin(cands, func(c metaCandidate) int64 { return c.lastAccess })
	} else {
		j = argmin(cands, func(c metaCandidate) uint64 { return c.numAccesses })
	}
	i := cands[j].idx
	return i, entries[i].size, cursor, true
}

func selectRandom(entries []entry, claimed []bool, rng *rand.Rand, cursor int) (int, int64, int, bool) {
	var candidates []int
	for i, e := range entries {
		if !claimed[i] && e.resident {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return 0, 0, cursor, false
	}
	i := candidates[rng.Intn(len(candidates))]
	return i, entries[i].size, cursor, true
}

// scanClock walks entries starting at cursor, wrapping around, looking
// for a resident, unclaimed candidate. With secondChance set it
// implements the clock algorithm: a candidate whose second-chance bit is
// set gets the bit cleared and is skipped rather than evicted, giving it
// up to one extra lap before it becomes eligible. Without it, it is
// plain round-robin: the first resident entry found is the victim.
func scanClock(entries []entry, claimed []bool, cursor int, secondChance bool) (int, int64, int, bool) {
	n := len(entries)
	if n == 0 {
		return 0, 0, cursor, false
	}
	laps := n
	if secondChance {
		laps = 2 * n
	}
	for step := 0; step < laps; step++ {
		i := (cursor + step) % n
		e := entries[i]
		if claimed[i] || !e.resident {
			continue
		}
		if secondChance {
			m, upOk := e.upgrade()
			if !upOk {
				continue
			}
			if m.SecondChanceBit() {
				m.ClearSecondChanceBit()
				m.Release()
				continue
			}
			m.Release()
		}
		return i, e.size, (i + 1) % n, true
	}
	return 0, 0, cursor, false
}
