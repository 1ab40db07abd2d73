package district

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_TwentySixDistricts(t *testing.T) {
	districts := All()
	assert.Len(t, districts, 26)
	assert.NotContains(t, districts, Other)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("Antakalnis"))
	assert.True(t, Valid(Other))
	assert.False(t, Valid("Brooklyn"))
	assert.False(t, Valid(""))
}

func TestCanonical_Normalization(t *testing.T) {
	tests := []struct {
		in   string
		want CanonicalDistrict
		ok   bool
	}{
		{"Šeškinė", "Šeškinė", true},
		{"šeškinė", "Šeškinė", true},
		{"  Užupis  ", "Užupis", true},
		{"NAUJOJI VILNIA", "Naujoji Vilnia", true},
		{"Uzupis", "", false}, // stripped diacritics are not folded
		{"", "", false},
	}

	for _, tt := range tests {
		d, ok := Canonical(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, d, "input %q", tt.in)
		}
	}
}

func TestLookup_AliasTable(t *testing.T) {
	d, ok := Lookup("Trakų Vokė")
	require.True(t, ok)
	assert.Equal(t, CanonicalDistrict("Paneriai"), d)

	_, ok = Lookup("definitely not a place")
	assert.False(t, ok)
}

func TestAdjacency_Bounds(t *testing.T) {
	for _, d := range All() {
		neighbors := Adjacent(d)
		assert.GreaterOrEqual(t, len(neighbors), 2, "%s has too few neighbors", d)
		assert.LessOrEqual(t, len(neighbors), 4, "%s has too many neighbors", d)
		assert.NotContains(t, neighbors, d, "%s lists itself", d)
	}
}

func TestAdjacency_KnownEdges(t *testing.T) {
	assert.True(t, IsAdjacent("Senamiestis", "Naujamiestis"))
	assert.True(t, IsAdjacent("Naujamiestis", "Senamiestis"))
	assert.False(t, IsAdjacent("Senamiestis", "Žvėrynas"))
	assert.False(t, IsAdjacent("Senamiestis", "Grigiškės"))
}

func TestAdjacency_IntendedAsymmetry(t *testing.T) {
	// The adjacency table is directed as curated. These one-way edges are
	// intentional and must not be silently symmetrized.
	assert.True(t, IsAdjacent("Verkiai", "Baltupiai"))
	assert.False(t, IsAdjacent("Baltupiai", "Verkiai"))

	assert.True(t, IsAdjacent("Naujoji Vilnia", "Antakalnis"))
	assert.False(t, IsAdjacent("Antakalnis", "Naujoji Vilnia"))
}

func TestNearest(t *testing.T) {
	// A point in the old town resolves to Senamiestis.
	d, km := Nearest(54.6780, 25.2869)
	assert.Equal(t, CanonicalDistrict("Senamiestis"), d)
	assert.InDelta(t, 0, km, 0.01)

	// A point near the Grigiškės centroid.
	d, km = Nearest(54.6815, 25.0900)
	assert.Equal(t, CanonicalDistrict("Grigiškės"), d)
	assert.Less(t, km, 1.0)
}
