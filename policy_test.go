package swapengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_StringRoundTripsThroughParse(t *testing.T) {
	policies := []Policy{PolicyLRU, PolicyLFU, PolicyRandom, PolicyRoundRobin, PolicySecondChance}
	for _, p := range policies {
		parsed, ok := ParsePolicy(p.String())
		assert.True(t, ok)
		assert.Equal(t, p, parsed)
	}
}

func TestParsePolicy_Unknown(t *testing.T) {
	_, ok := ParsePolicy("not-a-policy")
	assert.False(t, ok)
}
