// Package override implements the manual correction overlay for district
// resolution. An override pins a raw observed place name to a reviewer-chosen
// district and takes precedence over the automatic resolver.
package override

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/vilniusrent/valuation-cli/internal/district"
)

// Override is a reviewer-authored correction for one raw place name.
// PreviousDistrict records what the resolver produced before the correction,
// so removing the override restores it verbatim.
type Override struct {
	RawName           string                      `json:"osm_name"`
	PreviousDistrict  *district.CanonicalDistrict `json:"original_district"`
	CorrectedDistrict district.CanonicalDistrict  `json:"new_district"`
	Reason            string                      `json:"reason"`
}

// Validate checks that the override targets a legal district.
func (o Override) Validate() error {
	if o.RawName == "" {
		return eris.New("override: raw name is required")
	}
	if !district.Valid(o.CorrectedDistrict) {
		return eris.Errorf("override: %q is not a canonical district", o.CorrectedDistrict)
	}
	if o.PreviousDistrict != nil && !district.Valid(*o.PreviousDistrict) {
		return eris.Errorf("override: previous district %q is not canonical", *o.PreviousDistrict)
	}
	return nil
}

// Store is the persistence contract for the active override set. One entry
// per raw name; a later Apply for the same name replaces the earlier one.
type Store interface {
	// List returns the active overrides in insertion order.
	List(ctx context.Context) ([]Override, error)

	// Apply inserts an override, replacing any entry with the same RawName.
	Apply(ctx context.Context, o Override) error

	// Remove deletes the entry for rawName and returns the district that
	// should now be treated as restored (the override's recorded previous
	// district, which may be nil).
	Remove(ctx context.Context, rawName string) (*district.CanonicalDistrict, error)

	Close() error
}

// ExportBundle is the offline-review export shape: the raw override list plus
// a flattened raw-name-to-district map.
type ExportBundle struct {
	Overrides []Override                            `json:"overrides"`
	Flattened map[string]district.CanonicalDistrict `json:"flattened"`
}

// Export builds the review bundle from the active override set.
func Export(ctx context.Context, s Store) (*ExportBundle, error) {
	overrides, err := s.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "override: export")
	}

	flat := make(map[string]district.CanonicalDistrict, len(overrides))
	for _, o := range overrides {
		flat[o.RawName] = o.CorrectedDistrict
	}
	return &ExportBundle{Overrides: overrides, Flattened: flat}, nil
}
