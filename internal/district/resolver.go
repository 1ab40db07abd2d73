package district

import (
	"fmt"
	"strings"
)

// Confidence labels how trustworthy a resolution is.
type Confidence string

// Confidence values, strongest first.
const (
	ConfidenceExact    Confidence = "exact"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
	ConfidenceFallback Confidence = "fallback"
)

// Source names the address field that produced a resolution.
type Source string

// Source values in priority order.
const (
	SourceQuarter       Source = "quarter"
	SourceNeighbourhood Source = "neighbourhood"
	SourceSuburb        Source = "suburb"
	SourceNone          Source = "none"
)

// seniunijaMarker identifies a coarse administrative unit in an OSM suburb
// name. Seniūnija-level matches are geographically coarser than quarter or
// neighbourhood matches and get a lower confidence.
const seniunijaMarker = "seniūnija"

// AddressRecord carries the three geocoder address fields the resolver
// consults. All other geocoder fields are ignored. Empty means absent.
type AddressRecord struct {
	Quarter       string `json:"quarter,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
}

// Resolution is the outcome of resolving an AddressRecord. District is always
// a canonical district or Other, never an arbitrary string.
type Resolution struct {
	District   CanonicalDistrict `json:"district"`
	Confidence Confidence        `json:"confidence"`
	Source     Source            `json:"source"`
	RawValue   string            `json:"raw_value"`
	Notes      string            `json:"notes,omitempty"`
}

// Fallback reports whether the resolution degraded to Other with no source.
func (r Resolution) Fallback() bool {
	return r.Confidence == ConfidenceFallback
}

// Resolve maps a geocoder address record to a model district. Pure and total:
// unresolvable input yields the Other fallback rather than an error.
//
// Fields are tried in strict priority order: quarter, then neighbourhood,
// then suburb. Quarter is the most precise field the geocoder returns but is
// sparsely populated; suburb is densest but coarsest. Per field the alias
// table is consulted first, then a verbatim canonical-name match.
func Resolve(addr AddressRecord) Resolution {
	if r, ok := resolveField(addr.Quarter, SourceQuarter); ok {
		return r
	}
	if r, ok := resolveField(addr.Neighbourhood, SourceNeighbourhood); ok {
		return r
	}
	if r, ok := resolveField(addr.Suburb, SourceSuburb); ok {
		return r
	}

	return Resolution{
		District:   Other,
		Confidence: ConfidenceFallback,
		Source:     SourceNone,
		RawValue: fmt.Sprintf("quarter=%q neighbourhood=%q suburb=%q",
			addr.Quarter, addr.Neighbourhood, addr.Suburb),
		Notes: "no address field matched the mapping table or canonical set",
	}
}

// resolveField applies the two per-field checks: alias table, then exact
// canonical match. The table wins when a raw value is both.
func resolveField(raw string, source Source) (Resolution, bool) {
	if strings.TrimSpace(raw) == "" {
		return Resolution{}, false
	}

	if d, ok := Lookup(raw); ok {
		confidence := ConfidenceHigh
		if source == SourceSuburb && containsSeniunija(raw) {
			confidence = ConfidenceMedium
		}
		return Resolution{
			District:   d,
			Confidence: confidence,
			Source:     source,
			RawValue:   raw,
		}, true
	}

	if d, ok := Canonical(raw); ok {
		return Resolution{
			District:   d,
			Confidence: ConfidenceExact,
			Source:     source,
			RawValue:   raw,
		}, true
	}

	return Resolution{}, false
}

func containsSeniunija(raw string) bool {
	return strings.Contains(normalizeKey(raw), seniunijaMarker)
}
