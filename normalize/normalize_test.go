package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdempotent(t *testing.T) {
	cases := []string{
		"The Attack on Titan",
		"Spy x Family, The",
		"[Group] Berserk (2021) v01-03 [Complete]",
		"Nӓme wïth Áccents",
		"   multiple   spaces   ",
		"",
		"日本語のタイトル",
	}
	for _, c := range cases {
		once := Normalize(c)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize must be idempotent for %q", c)
	}
}

func TestNormalizeArticles(t *testing.T) {
	assert.Equal(t, Normalize("The X"), Normalize("X, The"))
	assert.Equal(t, "x", Normalize("The X"))
}

func TestNormalizeBracketStripping(t *testing.T) {
	assert.Equal(t, "berserk", Normalize("[Group] Berserk [Complete]"))
	assert.Equal(t, "kaiju no 8", Normalize("Kaiju No. 8 (2021)"))
}

func TestNormalizeCaseFold(t *testing.T) {
	assert.Equal(t, Normalize("ATTACK ON TITAN"), Normalize("attack on titan"))
}

func TestNormalizeCollapsesPunctuation(t *testing.T) {
	assert.Equal(t, "one piece", Normalize("One-Piece!!"))
}
