package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedEqual(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "identical", a: "Moby Dick", b: "Moby Dick", want: true},
		{name: "case differs", a: "MOBY DICK", b: "moby dick", want: true},
		{name: "surrounding punctuation", a: "  Moby Dick.  ", b: "[Moby Dick]", want: true},
		{name: "inner whitespace collapsed", a: "Moby   Dick", b: "Moby Dick", want: true},
		{name: "full case folding", a: "Straße", b: "STRASSE", want: true},
		{name: "inner punctuation kept", a: "Moby-Dick", b: "Moby Dick", want: false},
		{name: "different", a: "Moby Dick", b: "Typee", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizedEqual(tt.a, tt.b))
		})
	}
}

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "London", b: "London", want: 1.0},
		{name: "case insensitive", a: "London", b: "london", want: 1.0},
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "one empty", a: "London", b: "", want: 0.0},
		{name: "transposition", a: "MARTHA", b: "MARHTA", want: 0.9611},
		{name: "short prefix", a: "DWAYNE", b: "DUANE", want: 0.84},
		{name: "dixon", a: "DIXON", b: "DICKSONX", want: 0.8133},
		{name: "publisher imprint", a: "Penguin", b: "Penguin Classics", want: 0.9438},
		{name: "city qualifier", a: "New York", b: "New York City", want: 0.9744},
		{name: "disjoint", a: "abc", b: "xyz", want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FuzzyMatch(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 0.0001)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestFuzzyMatchSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Penguin", "Penguin Classics"},
		{"Boston", "Bostn"},
	}
	for _, p := range pairs {
		assert.InDelta(t, FuzzyMatch(p[0], p[1]), FuzzyMatch(p[1], p[0]), 1e-9, "%q vs %q", p[0], p[1])
	}
}

func TestFuzzyMatchLongPrefixStaysBounded(t *testing.T) {
	a := "the complete works of william shakespeare"
	b := "the complete works of william shakespeare volume one"
	got := FuzzyMatch(a, b)
	assert.LessOrEqual(t, got, 1.0)
	assert.True(t, Similar(a, b))
}

func TestMatchesIsStrict(t *testing.T) {
	assert.False(t, Matches(Threshold), "exactly the threshold is not a match")
	assert.False(t, Matches(0.8999))
	assert.True(t, Matches(0.9001))
	assert.True(t, Matches(1.0))
}

func TestSimilar(t *testing.T) {
	assert.True(t, Similar("London", "london"))
	assert.True(t, Similar("Penguin", "Penguin Classics"))
	assert.False(t, Similar("London", "Paris"))
	assert.False(t, Similar("DWAYNE", "DUANE"))
}
