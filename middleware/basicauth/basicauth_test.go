package basicauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSucceeds(t *testing.T) {
	pairs := []Pair{{Username: "admin", Password: "secret"}}
	assert.True(t, Match(pairs, "admin", "secret"))
}

func TestMatchWrongPassword(t *testing.T) {
	pairs := []Pair{{Username: "admin", Password: "secret"}}
	assert.False(t, Match(pairs, "admin", "wrong"))
}

func TestMatchWrongUsername(t *testing.T) {
	pairs := []Pair{{Username: "admin", Password: "secret"}}
	assert.False(t, Match(pairs, "nobody", "secret"))
}

func TestMatchAgainstMultiplePairs(t *testing.T) {
	pairs := []Pair{
		{Username: "alice", Password: "alicepw"},
		{Username: "bob", Password: "bobpw"},
	}
	assert.True(t, Match(pairs, "bob", "bobpw"))
	assert.False(t, Match(pairs, "bob", "alicepw"))
}

func TestMatchEmptyPairsRejectsEverything(t *testing.T) {
	assert.False(t, Match(nil, "admin", "secret"))
}
