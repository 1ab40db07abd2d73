package district

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_PriorityOrder(t *testing.T) {
	// Each field independently maps to a different district via the alias
	// table; quarter must win.
	r := Resolve(AddressRecord{
		Quarter:       "Saulėtekis",       // -> Antakalnis
		Neighbourhood: "Paupys",           // -> Užupis
		Suburb:        "Žemieji Paneriai", // -> Vilkpėdė
	})

	assert.Equal(t, CanonicalDistrict("Antakalnis"), r.District)
	assert.Equal(t, SourceQuarter, r.Source)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
	assert.Equal(t, "Saulėtekis", r.RawValue)
}

func TestResolve_FieldFallthrough(t *testing.T) {
	tests := []struct {
		name     string
		addr     AddressRecord
		district CanonicalDistrict
		source   Source
	}{
		{
			name:     "empty quarter falls through to neighbourhood",
			addr:     AddressRecord{Neighbourhood: "Paupys"},
			district: "Užupis",
			source:   SourceNeighbourhood,
		},
		{
			name:     "unknown quarter falls through to suburb",
			addr:     AddressRecord{Quarter: "Nowhereville", Suburb: "Salininkai"},
			district: "Naujininkai",
			source:   SourceSuburb,
		},
		{
			name:     "whitespace-only quarter treated as missing",
			addr:     AddressRecord{Quarter: "   ", Suburb: "Kirtimai"},
			district: "Naujininkai",
			source:   SourceSuburb,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(tt.addr)
			assert.Equal(t, tt.district, r.District)
			assert.Equal(t, tt.source, r.Source)
		})
	}
}

func TestResolve_ExactCanonicalMatch(t *testing.T) {
	r := Resolve(AddressRecord{Quarter: "Senamiestis"})

	assert.Equal(t, CanonicalDistrict("Senamiestis"), r.District)
	assert.Equal(t, ConfidenceExact, r.Confidence)
	assert.Equal(t, SourceQuarter, r.Source)
}

func TestResolve_ExactMatchIgnoresCase(t *testing.T) {
	r := Resolve(AddressRecord{Neighbourhood: "ŽVĖRYNAS"})

	assert.Equal(t, CanonicalDistrict("Žvėrynas"), r.District)
	assert.Equal(t, ConfidenceExact, r.Confidence)
}

func TestResolve_SeniunijaDowngrade(t *testing.T) {
	tests := []struct {
		name       string
		suburb     string
		district   CanonicalDistrict
		confidence Confidence
	}{
		{
			name:       "seniūnija suburb downgrades to medium",
			suburb:     "Žvėryno seniūnija",
			district:   "Žvėrynas",
			confidence: ConfidenceMedium,
		},
		{
			name:       "plain alias suburb stays high",
			suburb:     "Salininkai",
			district:   "Naujininkai",
			confidence: ConfidenceHigh,
		},
		{
			name:       "exact canonical suburb stays exact",
			suburb:     "Lazdynai",
			district:   "Lazdynai",
			confidence: ConfidenceExact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(AddressRecord{Suburb: tt.suburb})
			assert.Equal(t, tt.district, r.District)
			assert.Equal(t, tt.confidence, r.Confidence)
			assert.Equal(t, SourceSuburb, r.Source)
		})
	}
}

func TestResolve_SeniunijaMarkerOnlyAffectsSuburb(t *testing.T) {
	// The same seniūnija name via quarter keeps full confidence.
	r := Resolve(AddressRecord{Quarter: "Žvėryno seniūnija"})

	assert.Equal(t, CanonicalDistrict("Žvėrynas"), r.District)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
}

func TestResolve_Fallback(t *testing.T) {
	tests := []struct {
		name string
		addr AddressRecord
	}{
		{name: "empty record", addr: AddressRecord{}},
		{
			name: "all fields unknown",
			addr: AddressRecord{Quarter: "Atlantis", Neighbourhood: "Narnia", Suburb: "Mordor"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(tt.addr)
			assert.Equal(t, Other, r.District)
			assert.Equal(t, ConfidenceFallback, r.Confidence)
			assert.Equal(t, SourceNone, r.Source)
			assert.True(t, r.Fallback())
			assert.Contains(t, r.RawValue, "quarter=")
		})
	}
}

func TestResolve_Totality(t *testing.T) {
	// Every output district must be canonical or Other, for any input.
	inputs := []AddressRecord{
		{},
		{Quarter: "Saulėtekis"},
		{Quarter: "garbage", Neighbourhood: "more garbage", Suburb: "even more"},
		{Suburb: "Panerių seniūnija"},
		{Neighbourhood: "Naujoji Vilnia"},
		{Quarter: "\t\n"},
	}

	for _, addr := range inputs {
		r := Resolve(addr)
		require.True(t, Valid(r.District), "district %q must be canonical or Other", r.District)
	}
}

func TestResolve_TableWinsOverCanonical(t *testing.T) {
	// If a raw value were both an alias key and a canonical name the table
	// mapping wins; the curated data keeps the sets disjoint, so assert the
	// check order indirectly: an alias hit never reports exact confidence.
	r := Resolve(AddressRecord{Quarter: "Bajorai"})
	assert.Equal(t, CanonicalDistrict("Fabijoniškės"), r.District)
	assert.NotEqual(t, ConfidenceExact, r.Confidence)
}
