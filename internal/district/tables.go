package district

import (
	"fmt"
	"sync"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed districts.yaml
var districtsYAML []byte

// Centroid is an approximate district center in WGS84.
type Centroid struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// tables holds the curated lookup data parsed from districts.yaml.
type tables struct {
	Districts []CanonicalDistrict                       `yaml:"districts"`
	Aliases   map[string]CanonicalDistrict              `yaml:"aliases"`
	Adjacency map[CanonicalDistrict][]CanonicalDistrict `yaml:"adjacency"`
	Centroids map[CanonicalDistrict]Centroid            `yaml:"centroids"`

	canonicalByKey map[string]CanonicalDistrict
	aliasByKey     map[string]CanonicalDistrict
}

var (
	loadOnce sync.Once
	loaded   *tables
)

// load parses the embedded tables exactly once. The data is build-time
// curated, so a malformed file is a programming error and panics.
func load() *tables {
	loadOnce.Do(func() {
		t := &tables{}
		if err := yaml.Unmarshal(districtsYAML, t); err != nil {
			panic(fmt.Sprintf("district: parse districts.yaml: %v", err))
		}
		if err := t.build(); err != nil {
			panic(fmt.Sprintf("district: validate districts.yaml: %v", err))
		}
		loaded = t
	})
	return loaded
}

// build derives the normalized lookup maps and validates cross-references.
func (t *tables) build() error {
	t.canonicalByKey = make(map[string]CanonicalDistrict, len(t.Districts))
	for _, d := range t.Districts {
		key := normalizeKey(string(d))
		if _, dup := t.canonicalByKey[key]; dup {
			return fmt.Errorf("duplicate district %q", d)
		}
		t.canonicalByKey[key] = d
	}

	t.aliasByKey = make(map[string]CanonicalDistrict, len(t.Aliases))
	for raw, d := range t.Aliases {
		if _, ok := t.canonicalByKey[normalizeKey(string(d))]; !ok {
			return fmt.Errorf("alias %q maps to unknown district %q", raw, d)
		}
		t.aliasByKey[normalizeKey(raw)] = d
	}

	for d, neighbors := range t.Adjacency {
		if _, ok := t.canonicalByKey[normalizeKey(string(d))]; !ok {
			return fmt.Errorf("adjacency key %q is not a district", d)
		}
		for _, n := range neighbors {
			if _, ok := t.canonicalByKey[normalizeKey(string(n))]; !ok {
				return fmt.Errorf("adjacency %q -> %q: unknown neighbor", d, n)
			}
		}
	}

	for d := range t.Centroids {
		if _, ok := t.canonicalByKey[normalizeKey(string(d))]; !ok {
			return fmt.Errorf("centroid key %q is not a district", d)
		}
	}

	return nil
}
