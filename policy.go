package swapengine

// Policy selects which resident cown to evict next when the engine is
// under memory pressure (spec.md §4.4). The zero value is PolicyLRU.
type Policy int

const (
	// PolicyLRU evicts the resident cown with the oldest last_access.
	PolicyLRU Policy = iota
	// PolicyLFU evicts the resident cown with the smallest num_accesses.
	PolicyLFU
	// PolicyRandom evicts a uniformly random resident cown.
	PolicyRandom
	// PolicyRoundRobin evicts the first resident cown at or after the
	// registry's cursor, then advances the cursor past it; non-resident
	// entries passed over on the way are skipped.
	PolicyRoundRobin
	// PolicySecondChance behaves like PolicyRoundRobin but gives each
	// candidate one reprieve: if its second-chance bit is set, the bit is
	// cleared and the scan continues instead of evicting it.
	PolicySecondChance
)

// String renders the policy the way the original verona-rt runtime's
// algo_to_string does, for use in log fields and error messages.
func (p Policy) String() string {
	switch p {
	case PolicyLRU:
		return "lru"
	case PolicyLFU:
		return "lfu"
	case PolicyRandom:
		return "random"
	case PolicyRoundRobin:
		return "round_robin"
	case PolicySecondChance:
		return "second_chance"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a policy's String() form back to a Policy value, for
// use by WithPolicyName-style configuration read from the environment or
// a config file. It returns false for any unrecognized name.
func ParsePolicy(name string) (Policy, bool) {
	switch name {
	case "lru":
		return PolicyLRU, true
	case "lfu":
		return PolicyLFU, true
	case "random":
		return PolicyRandom, true
	case "round_robin":
		return PolicyRoundRobin, true
	case "second_chance":
		return PolicySecondChance, true
	default:
		return 0, false
	}
}
