// Package store persists comparable listings and valuation records.
package store

import (
	"context"
	"time"

	"github.com/vilniusrent/valuation-cli/internal/comparable"
	"github.com/vilniusrent/valuation-cli/internal/district"
)

// ListingFilter specifies criteria for listing comparable candidates.
type ListingFilter struct {
	District string  `json:"district,omitempty"`
	MinRooms int     `json:"min_rooms,omitempty"`
	MaxRooms int     `json:"max_rooms,omitempty"`
	MaxPrice float64 `json:"max_price,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// Valuation is one completed prediction request and its outcome.
type Valuation struct {
	ID             string                     `json:"id"`
	Place          string                     `json:"place"`
	District       district.CanonicalDistrict `json:"district"`
	Confidence     district.Confidence        `json:"confidence"`
	Rooms          int                        `json:"rooms"`
	AreaM2         float64                    `json:"area_m2"`
	Floor          int                        `json:"floor"`
	BuildYear      int                        `json:"build_year"`
	PredictedPrice float64                    `json:"predicted_price"`
	PricePerM2     float64                    `json:"price_per_m2"`
	ModelVersion   string                     `json:"model_version"`
	CreatedAt      time.Time                  `json:"created_at"`
}

// Store defines persistence for listings and valuations.
type Store interface {
	// Listings
	UpsertListing(ctx context.Context, l comparable.Listing) error
	ListListings(ctx context.Context, filter ListingFilter) ([]comparable.Listing, error)

	// Valuations
	CreateValuation(ctx context.Context, v *Valuation) error
	GetValuation(ctx context.Context, id string) (*Valuation, error)
	ListValuations(ctx context.Context, limit int) ([]Valuation, error)
	DeleteOldValuations(ctx context.Context, olderThan time.Duration) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
