// Package district maps free-form Vilnius place names to the closed set of
// model districts the pricing service accepts as a location feature.
package district

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalDistrict is one of the fixed model district names, or Other.
type CanonicalDistrict string

// Other is the catch-all district for places the resolver cannot place.
const Other CanonicalDistrict = "Other"

// All returns the canonical districts in curated order, excluding Other.
func All() []CanonicalDistrict {
	out := make([]CanonicalDistrict, len(load().Districts))
	copy(out, load().Districts)
	return out
}

// Valid reports whether d is a canonical district or Other.
func Valid(d CanonicalDistrict) bool {
	if d == Other {
		return true
	}
	_, ok := load().canonicalByKey[normalizeKey(string(d))]
	return ok
}

// Canonical matches a raw name against the canonical set, ignoring case and
// Unicode form. Returns the curated spelling.
func Canonical(name string) (CanonicalDistrict, bool) {
	d, ok := load().canonicalByKey[normalizeKey(name)]
	return d, ok
}

// Lookup maps a raw observed place name to a model district via the alias
// table. Absence is expected; callers fall back to Canonical or Other.
func Lookup(raw string) (CanonicalDistrict, bool) {
	d, ok := load().aliasByKey[normalizeKey(raw)]
	return d, ok
}

// Adjacent returns the curated neighbor set for a district. The relation is
// directed; some curated edges are intentionally one-way.
func Adjacent(d CanonicalDistrict) []CanonicalDistrict {
	c, ok := load().canonicalByKey[normalizeKey(string(d))]
	if !ok {
		return nil
	}
	return load().Adjacency[c]
}

// IsAdjacent reports whether b appears in a's neighbor set.
func IsAdjacent(a, b CanonicalDistrict) bool {
	cb, ok := Canonical(string(b))
	if !ok {
		return false
	}
	for _, n := range Adjacent(a) {
		if n == cb {
			return true
		}
	}
	return false
}

// normalizeKey folds a place name for table lookup: trimmed, NFC, lowercased.
func normalizeKey(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
