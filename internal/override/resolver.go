package override

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vilniusrent/valuation-cli/internal/district"
)

// Resolver wraps the pure district resolver with the override overlay.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store. A nil store
// resolves without overrides.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve computes the base resolution and substitutes a matching override.
// Store failures degrade to the base resolution; overrides are a curation
// aid, never a hard dependency of resolution.
func (r *Resolver) Resolve(ctx context.Context, addr district.AddressRecord) district.Resolution {
	base := district.Resolve(addr)
	if r == nil || r.store == nil {
		return base
	}

	overrides, err := r.store.List(ctx)
	if err != nil {
		zap.L().Warn("override: listing failed, resolving without overrides",
			zap.Error(err),
		)
		return base
	}

	for _, o := range overrides {
		if o.RawName == base.RawValue {
			base.District = o.CorrectedDistrict
			base.Confidence = district.ConfidenceExact
			base.Notes = fmt.Sprintf("override for %q applied: %s", o.RawName, o.Reason)
			break
		}
	}
	return base
}
